package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardvault/ledger-service/internal/domain"
	"github.com/cardvault/ledger-service/internal/store"
)

// fakeRepo is an in-memory store.Repository with per-operation error injection, used
// by the service, settlement, and accrual tests.
type fakeRepo struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]*domain.Account
	users        map[uuid.UUID]*domain.User
	transactions map[uuid.UUID]*domain.Transaction
	audit        []domain.AuditEntry

	failBalancesFor map[uuid.UUID]error // keyed by account id
	failSettleFor   map[uuid.UUID]error // keyed by transaction id
	failCreate      func(tx *domain.Transaction) error
	failPending     error
	failAggregate   error
	failTouchFee    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:        make(map[uuid.UUID]*domain.Account),
		users:           make(map[uuid.UUID]*domain.User),
		transactions:    make(map[uuid.UUID]*domain.Transaction),
		failBalancesFor: make(map[uuid.UUID]error),
		failSettleFor:   make(map[uuid.UUID]error),
	}
}

func (f *fakeRepo) addUser(email string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Email: email}
	f.users[u.ID] = u
	return u
}

func (f *fakeRepo) addAccount(user *domain.User, number string, active bool) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &domain.Account{
		ID:       uuid.New(),
		Number:   number,
		LastFour: domain.MaskLastFour(number),
		Active:   active,
		UserID:   user.ID,
	}
	f.accounts[a.ID] = a
	return a
}

func (f *fakeRepo) addTransaction(account *domain.Account, typ domain.TransactionType, subtype domain.TransactionSubtype, amountCents int64, status domain.TransactionStatus, vendor string, date time.Time) *domain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &domain.Transaction{
		ID:          domain.NewTransactionID(),
		Date:        date,
		Type:        typ,
		Subtype:     subtype,
		AmountCents: amountCents,
		Status:      status,
		Vendor:      vendor,
		AccountID:   account.ID,
		UserID:      account.UserID,
	}
	f.transactions[tx.ID] = tx
	return tx
}

func (f *fakeRepo) transactionsBySubtype(subtype domain.TransactionSubtype) []*domain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range f.transactions {
		if tx.Subtype == subtype {
			out = append(out, tx)
		}
	}
	return out
}

func (f *fakeRepo) CreateAccount(ctx context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.UserID == account.UserID || existing.Number == account.Number {
			return store.ErrAccountExists
		}
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeRepo) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) FindAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Number == number {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (f *fakeRepo) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (f *fakeRepo) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	a.Active = active
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) TouchLastOverdraftFee(ctx context.Context, accountID uuid.UUID, chargedAt time.Time) error {
	if f.failTouchFee != nil {
		return f.failTouchFee
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	if a.LastOverdraftFeeAt == nil || chargedAt.After(*a.LastOverdraftFeeAt) {
		a.LastOverdraftFeeAt = &chargedAt
	}
	return nil
}

func (f *fakeRepo) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeRepo) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) (domain.AuditTrail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var trail domain.AuditTrail
	for _, e := range f.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			trail = append(trail, e)
		}
	}
	return trail, nil
}

func (f *fakeRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeRepo) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	if f.failCreate != nil {
		if err := f.failCreate(tx); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tx
	f.transactions[tx.ID] = &cp
	return nil
}

func (f *fakeRepo) CreateTransferPair(ctx context.Context, sender, receiver *domain.Transaction) error {
	if err := f.CreateTransaction(ctx, sender); err != nil {
		return err
	}
	return f.CreateTransaction(ctx, receiver)
}

func (f *fakeRepo) CreateTransactionsUnordered(ctx context.Context, txs []*domain.Transaction) (int, error) {
	inserted := 0
	var firstErr error
	for _, tx := range txs {
		if err := f.CreateTransaction(ctx, tx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	return inserted, firstErr
}

func (f *fakeRepo) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeRepo) FindTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.transactions {
		if filter.ID != nil && tx.ID != *filter.ID {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		if filter.AccountID != nil && tx.AccountID != *filter.AccountID {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeRepo) FindPendingTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if f.failPending != nil {
		return nil, f.failPending
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.transactions {
		if tx.Status == domain.StatusPending {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID.String() < out[j].AccountID.String()
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (f *fakeRepo) SettleTransaction(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) (bool, error) {
	if err, ok := f.failSettleFor[id]; ok {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[id]
	if !ok || tx.Status != domain.StatusPending {
		return false, nil
	}
	tx.Status = status
	return true, nil
}

func (f *fakeRepo) AccountBalances(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	if err, ok := f.failBalancesFor[accountID]; ok {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var b domain.Balance
	for _, tx := range f.transactions {
		if tx.AccountID != accountID {
			continue
		}
		switch tx.Status {
		case domain.StatusCompleted:
			b.CurrentCents += tx.AmountCents
		case domain.StatusPending:
			b.PendingCents += tx.AmountCents
		}
	}
	b.FinalCents = b.CurrentCents + b.PendingCents
	return &b, nil
}

func (f *fakeRepo) CompletedBalancesByUser(ctx context.Context) ([]domain.UserBalance, error) {
	if f.failAggregate != nil {
		return nil, f.failAggregate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := make(map[uuid.UUID]*domain.UserBalance)
	for _, tx := range f.transactions {
		if tx.Status != domain.StatusCompleted {
			continue
		}
		ub, ok := totals[tx.UserID]
		if !ok {
			ub = &domain.UserBalance{UserID: tx.UserID, AccountID: tx.AccountID}
			totals[tx.UserID] = ub
		}
		ub.TotalCents += tx.AmountCents
	}
	var out []domain.UserBalance
	for _, ub := range totals {
		out = append(out, *ub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}
