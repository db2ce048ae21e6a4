/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access the
 * ledger-service needs. Keeping the business logic behind this interface decouples it
 * from PostgreSQL and lets the settlement and accrual engines be tested against
 * in-memory fakes.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardvault/ledger-service/internal/domain"
)

// Repository is the set of persistence operations used by the ledger.
type Repository interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAccountByNumber(ctx context.Context, number string) (*domain.Account, error)
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Account, error)
	// TouchLastOverdraftFee records a fee charge; the stored timestamp only ever moves
	// forward.
	TouchLastOverdraftFee(ctx context.Context, accountID uuid.UUID, chargedAt time.Time) error
	AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) (domain.AuditTrail, error)

	// Users
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	// CreateTransferPair inserts both legs of a transfer atomically.
	CreateTransferPair(ctx context.Context, sender, receiver *domain.Transaction) error
	// CreateTransactionsUnordered bulk-inserts with unordered semantics: a failure on
	// one record does not stop the others. Returns the number inserted.
	CreateTransactionsUnordered(ctx context.Context, txs []*domain.Transaction) (int, error)
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	// FindPendingTransactions returns every pending transaction ordered by account and
	// then by id (creation order).
	FindPendingTransactions(ctx context.Context) ([]domain.Transaction, error)
	// SettleTransaction conditionally moves a pending transaction to a terminal status.
	// Returns false when the transaction was not pending anymore (claimed elsewhere).
	SettleTransaction(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) (bool, error)

	// Aggregations
	AccountBalances(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error)
	CompletedBalancesByUser(ctx context.Context) ([]domain.UserBalance, error)
}
