/**
 * @description
 * Core business logic for the ledger-service. The `Service` struct is the transaction
 * factory and balance calculator: it validates and constructs ledger transactions
 * (including the derived cashback, overdraft fee, refund, and transfer types), manages
 * account state, and computes derived balances.
 *
 * Key rules enforced here:
 * - Debits are strictly positive, withdrawals strictly negative, amounts are whole cents.
 * - A transaction targets exactly one existing, active account and denormalizes the
 *   account's owner at creation time.
 * - Derived instant transactions (fee, cashback, interest) are created directly in the
 *   completed status; everything else starts pending.
 *
 * @dependencies
 * - internal/domain, internal/store: models and persistence contract.
 * - internal/metrics, pkg/rabbitmq: settlement observability and eventing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardvault/ledger-service/internal/config"
	"github.com/cardvault/ledger-service/internal/domain"
	"github.com/cardvault/ledger-service/internal/metrics"
	"github.com/cardvault/ledger-service/internal/store"
	"github.com/cardvault/ledger-service/pkg/rabbitmq"
)

const (
	cashbackVendor  = "CardVault Rewards"
	overdraftVendor = "CardVault"
	transferVendor  = "CardVault Transfer"
	interestVendor  = "CardVault Interest"
)

// Service provides the ledger's business logic.
type Service struct {
	repo    store.Repository
	cfg     config.Config
	logger  *slog.Logger
	events  rabbitmq.Publisher
	metrics *metrics.Metrics
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, cfg config.Config, logger *slog.Logger, events rabbitmq.Publisher, m *metrics.Metrics) *Service {
	if events == nil {
		events = &rabbitmq.NoopPublisher{Logger: logger}
	}
	return &Service{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		events:  events,
		metrics: m,
	}
}

// AccountRef is a tagged union identifying the target account of a new transaction.
// Exactly one field must be set.
type AccountRef struct {
	Account       *domain.Account
	AccountID     *uuid.UUID
	AccountNumber *string
}

func (r AccountRef) validate() error {
	set := 0
	if r.Account != nil {
		set++
	}
	if r.AccountID != nil {
		set++
	}
	if r.AccountNumber != nil {
		set++
	}
	if set != 1 {
		return domain.NewValidationError("exactly one account reference must be provided")
	}
	return nil
}

func (s *Service) resolveAccount(ctx context.Context, ref AccountRef) (*domain.Account, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var (
		account *domain.Account
		err     error
	)
	switch {
	case ref.Account != nil:
		account = ref.Account
	case ref.AccountID != nil:
		account, err = s.repo.FindAccountByID(ctx, *ref.AccountID)
	default:
		account, err = s.repo.FindAccountByNumber(ctx, *ref.AccountNumber)
	}
	if err != nil {
		return nil, s.storeFault("resolve account", err)
	}
	if !account.Active {
		return nil, domain.NewBusinessRuleError("account is inactive")
	}
	return account, nil
}

// storeFault maps repository errors to the two fault classes: known not-found sentinels
// become client faults, everything else is logged and becomes a generic system fault.
func (s *Service) storeFault(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		return domain.NewNotFoundError("account not found")
	case errors.Is(err, store.ErrUserNotFound):
		return domain.NewNotFoundError("user not found")
	case errors.Is(err, store.ErrTransactionNotFound):
		return domain.NewNotFoundError("transaction not found")
	case errors.Is(err, store.ErrAccountExists):
		return domain.NewBusinessRuleError("an account already exists for this user")
	}
	s.logger.Error("storage operation failed", "op", op, "error", err)
	return domain.NewSystemError(err)
}

// CreateTransactionParams carries the inputs for a new ledger transaction.
type CreateTransactionParams struct {
	Type        domain.TransactionType
	Subtype     domain.TransactionSubtype
	AmountCents int64
	Vendor      string
	Description *string
	Account     AccountRef
	// Defer skips the initial persist so the caller can mutate fields (such as status)
	// before the record is first written. Used by the derived-transaction creators.
	Defer bool
}

// CreateTransaction validates and constructs a new pending transaction against an
// active account, persisting it unless deferral was requested.
func (s *Service) CreateTransaction(ctx context.Context, p CreateTransactionParams) (*domain.Transaction, error) {
	if !domain.ValidType(p.Type) {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown transaction type %q", p.Type))
	}
	if !domain.SubtypeAllowed(p.Type, p.Subtype) {
		return nil, domain.NewValidationError(fmt.Sprintf("subtype %q is not valid for type %q", p.Subtype, p.Type))
	}
	if err := domain.ValidateAmountSign(p.Type, p.AmountCents); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if p.Vendor == "" {
		return nil, domain.NewValidationError("vendor is required")
	}

	account, err := s.resolveAccount(ctx, p.Account)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:          domain.NewTransactionID(),
		Date:        now,
		Type:        p.Type,
		Subtype:     p.Subtype,
		AmountCents: p.AmountCents,
		Status:      domain.StatusPending,
		Vendor:      p.Vendor,
		Description: p.Description,
		AccountID:   account.ID,
		UserID:      account.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if p.Defer {
		return tx, nil
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, s.storeFault("create transaction", err)
	}
	return tx, nil
}

// CreateTransferTransaction moves funds between two accounts. It returns the ordered
// pair [sender withdrawal, receiver credit], persisted atomically.
func (s *Service) CreateTransferTransaction(ctx context.Context, senderNumber, receiverNumber string, amountCents int64) ([]*domain.Transaction, error) {
	if senderNumber == "" || receiverNumber == "" {
		return nil, domain.NewValidationError("sender and receiver account numbers are required")
	}
	if senderNumber == receiverNumber {
		return nil, domain.NewValidationError("cannot transfer to the same account")
	}
	if amountCents <= 0 {
		return nil, domain.NewValidationError("transfer amount must be positive")
	}

	sender, err := s.resolveAccount(ctx, AccountRef{AccountNumber: &senderNumber})
	if err != nil {
		return nil, err
	}
	receiver, err := s.resolveAccount(ctx, AccountRef{AccountNumber: &receiverNumber})
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.AccountBalances(ctx, sender.ID)
	if err != nil {
		return nil, s.storeFault("sender balance", err)
	}
	if balance.FinalCents < amountCents {
		return nil, domain.NewBusinessRuleError("insufficient funds for transfer")
	}

	outDesc := "Transfer to account ****" + receiver.LastFour
	inDesc := "Transfer from account ****" + sender.LastFour

	out, err := s.CreateTransaction(ctx, CreateTransactionParams{
		Type:        domain.TypeWithdrawal,
		Subtype:     domain.SubtypeTransfer,
		AmountCents: -amountCents,
		Vendor:      transferVendor,
		Description: &outDesc,
		Account:     AccountRef{Account: sender},
		Defer:       true,
	})
	if err != nil {
		return nil, err
	}
	in, err := s.CreateTransaction(ctx, CreateTransactionParams{
		Type:        domain.TypeDebit,
		Subtype:     domain.SubtypeCredit,
		AmountCents: amountCents,
		Vendor:      transferVendor,
		Description: &inDesc,
		Account:     AccountRef{Account: receiver},
		Defer:       true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateTransferPair(ctx, out, in); err != nil {
		return nil, s.storeFault("create transfer pair", err)
	}
	return []*domain.Transaction{out, in}, nil
}

// CreateOverdraftFeeTransaction charges the configured overdraft fee against an
// account, immediately completed, and advances the account's cooldown timestamp.
func (s *Service) CreateOverdraftFeeTransaction(ctx context.Context, account *domain.Account) (*domain.Transaction, error) {
	if account == nil || account.ID == uuid.Nil || account.UserID == uuid.Nil {
		return nil, domain.NewValidationError("account reference is missing required fields")
	}

	tx, err := s.CreateTransaction(ctx, CreateTransactionParams{
		Type:        domain.TypeWithdrawal,
		Subtype:     domain.SubtypeFee,
		AmountCents: -s.cfg.OverdraftFeeCents,
		Vendor:      overdraftVendor,
		Account:     AccountRef{Account: account},
		Defer:       true,
	})
	if err != nil {
		return nil, err
	}
	tx.Status = domain.StatusCompleted

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, s.storeFault("create overdraft fee", err)
	}

	chargedAt := time.Now().UTC()
	if err := s.repo.TouchLastOverdraftFee(ctx, account.ID, chargedAt); err != nil {
		// The fee itself is persisted; a stale cooldown timestamp at worst allows an
		// early re-charge, which the monotonic update tolerates.
		s.logger.Error("failed to advance overdraft cooldown timestamp", "account_id", account.ID, "error", err)
	} else {
		account.LastOverdraftFeeAt = &chargedAt
	}

	s.auditBestEffort(ctx, account, "system", "account.overdraft_fee_charged")
	return tx, nil
}

// CreateCashbackTransaction creates the cashback bonus for a settled purchase. The
// source must be a completed withdrawal of subtype purchase.
func (s *Service) CreateCashbackTransaction(ctx context.Context, source *domain.Transaction) (*domain.Transaction, error) {
	if err := validateRewardSource(source); err != nil {
		return nil, err
	}

	amount := domain.RoundRate(-source.AmountCents, s.cfg.CashbackRate)
	if amount <= 0 {
		// Purchases too small to earn a whole cent produce no cashback entry.
		return nil, nil
	}

	desc := "Cashback for transaction " + source.ID.String()
	tx, err := s.CreateTransaction(ctx, CreateTransactionParams{
		Type:        domain.TypeDebit,
		Subtype:     domain.SubtypeCashback,
		AmountCents: amount,
		Vendor:      cashbackVendor,
		Description: &desc,
		Account:     AccountRef{AccountID: &source.AccountID},
		Defer:       true,
	})
	if err != nil {
		return nil, err
	}
	tx.Status = domain.StatusCompleted

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, s.storeFault("create cashback", err)
	}
	return tx, nil
}

// CreateRefundTransaction creates a pending refund mirroring a completed purchase.
func (s *Service) CreateRefundTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	source, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, s.storeFault("find refund source", err)
	}
	if err := validateRewardSource(source); err != nil {
		return nil, err
	}

	desc := "Refund for transaction " + source.ID.String()
	return s.CreateTransaction(ctx, CreateTransactionParams{
		Type:        domain.TypeDebit,
		Subtype:     domain.SubtypeRefund,
		AmountCents: -source.AmountCents,
		Vendor:      source.Vendor,
		Description: &desc,
		Account:     AccountRef{AccountID: &source.AccountID},
	})
}

// validateRewardSource checks the shared precondition for cashback and refunds: the
// source transaction is a completed withdrawal/purchase.
func validateRewardSource(source *domain.Transaction) error {
	if source == nil {
		return domain.NewValidationError("source transaction is required")
	}
	if source.Status != domain.StatusCompleted || source.Type != domain.TypeWithdrawal || source.Subtype != domain.SubtypePurchase {
		return domain.NewBusinessRuleError("source transaction must be a completed purchase withdrawal")
	}
	return nil
}

// CancelTransaction moves a pending transaction to canceled. Any other starting status
// is an invalid transition.
func (s *Service) CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, s.storeFault("find transaction", err)
	}
	if tx.Status != domain.StatusPending {
		return nil, domain.NewBusinessRuleError("only pending transactions can be canceled")
	}

	claimed, err := s.repo.SettleTransaction(ctx, id, domain.StatusCanceled)
	if err != nil {
		return nil, s.storeFault("cancel transaction", err)
	}
	if !claimed {
		return nil, domain.NewBusinessRuleError("transaction is no longer pending")
	}
	tx.Status = domain.StatusCanceled
	return tx, nil
}

// FindTransactions runs a filtered transaction history query.
func (s *Service) FindTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	txs, err := s.repo.FindTransactions(ctx, filter)
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		return nil, s.storeFault("find transactions", err)
	}
	return txs, nil
}

// Balances computes the derived balance triple for an account, fresh on every call.
func (s *Service) Balances(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, s.storeFault("find account", err)
	}
	balance, err := s.repo.AccountBalances(ctx, accountID)
	if err != nil {
		return nil, s.storeFault("account balances", err)
	}
	return balance, nil
}

// CreateAccount opens the single ledger account for a user with a generated unique
// account number.
func (s *Service) CreateAccount(ctx context.Context, userID uuid.UUID, actor string) (*domain.Account, error) {
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, s.storeFault("find user", err)
	}

	number, err := domain.NewAccountNumber()
	if err != nil {
		s.logger.Error("account number generation failed", "error", err)
		return nil, domain.NewSystemError(err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.New(),
		Number:    number,
		LastFour:  domain.MaskLastFour(number),
		Active:    true,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, s.storeFault("create account", err)
	}

	s.auditBestEffort(ctx, account, actor, "account.created")
	return account, nil
}

// SetAccountActive toggles the account's active flag and records the change in the
// audit trail.
func (s *Service) SetAccountActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*domain.Account, error) {
	account, err := s.repo.SetAccountActive(ctx, id, active)
	if err != nil {
		return nil, s.storeFault("set account active", err)
	}

	action := "account.deactivated"
	if active {
		action = "account.activated"
	}
	s.auditBestEffort(ctx, account, actor, action)
	return account, nil
}

// GetAccount retrieves an account by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.repo.FindAccountByID(ctx, id)
	if err != nil {
		return nil, s.storeFault("find account", err)
	}
	return account, nil
}

// AccountAuditTrail returns the append-only audit history for an account.
func (s *Service) AccountAuditTrail(ctx context.Context, id uuid.UUID) (domain.AuditTrail, error) {
	if _, err := s.repo.FindAccountByID(ctx, id); err != nil {
		return nil, s.storeFault("find account", err)
	}
	trail, err := s.repo.AuditTrail(ctx, "account", id)
	if err != nil {
		return nil, s.storeFault("audit trail", err)
	}
	return trail, nil
}

func (s *Service) auditBestEffort(ctx context.Context, entity domain.Audited, actor, action string) {
	if err := s.repo.AppendAuditEntry(ctx, entity.AuditRecord(actor, action)); err != nil {
		s.logger.Error("failed to append audit entry", "action", action, "error", err)
	}
}
