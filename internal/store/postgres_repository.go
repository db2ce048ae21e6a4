/**
 * @description
 * PostgreSQL implementation of the `Repository` interface. All SQL for accounts,
 * users, transactions, balance aggregation, and the audit log lives here.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and connection pooling.
 * - internal/domain: domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardvault/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists for user")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

const uniqueViolationCode = "23505"

// PostgresRepository is the pgx-backed Repository implementation.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, number, last_four, active, user_id, last_overdraft_fee_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Number, &a.LastFour, &a.Active, &a.UserID, &a.LastOverdraftFeeAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account. The one-account-per-owner and unique-number
// rules are enforced by database constraints.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, number, last_four, active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, account.ID, account.Number, account.LastFour, account.Active, account.UserID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrAccountExists
		}
		return err
	}
	return nil
}

// FindAccountByID retrieves an account by its identifier.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// FindAccountByNumber retrieves an account by its account number.
func (r *PostgresRepository) FindAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number))
}

// FindAccountByUserID retrieves the single account owned by a user.
func (r *PostgresRepository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID))
}

// SetAccountActive toggles the active flag and returns the updated account.
func (r *PostgresRepository) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Account, error) {
	query := `
		UPDATE accounts SET active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, id, active))
}

// TouchLastOverdraftFee advances last_overdraft_fee_at. GREATEST keeps the stored value
// monotonically non-decreasing even under concurrent writers.
func (r *PostgresRepository) TouchLastOverdraftFee(ctx context.Context, accountID uuid.UUID, chargedAt time.Time) error {
	query := `
		UPDATE accounts
		SET last_overdraft_fee_at = GREATEST(COALESCE(last_overdraft_fee_at, 'epoch'::timestamptz), $2),
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, accountID, chargedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AppendAuditEntry saves one audit event. The audit log is append-only; there is no
// update or delete path.
func (r *PostgresRepository) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, at, actor, action)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, entry.EntityType, entry.EntityID, entry.At, entry.Actor, entry.Action)
	return err
}

// AuditTrail returns an entity's audit events, oldest first.
func (r *PostgresRepository) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) (domain.AuditTrail, error) {
	query := `
		SELECT entity_type, entity_id, at, actor, action
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY at ASC
	`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trail domain.AuditTrail
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.EntityType, &e.EntityID, &e.At, &e.Actor, &e.Action); err != nil {
			return nil, err
		}
		trail = append(trail, e)
	}
	return trail, rows.Err()
}

// FindUserByID retrieves a user by id.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, email FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	query := `SELECT id, email FROM users WHERE lower(email) = lower(btrim($1))`
	err := r.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

const transactionColumns = `id, date, type, subtype, amount_cents, status, vendor, description, account_id, user_id, created_at, updated_at`

const insertTransactionSQL = `
	INSERT INTO transactions (id, date, type, subtype, amount_cents, status, vendor, description, account_id, user_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
`

func transactionArgs(tx *domain.Transaction) []any {
	return []any{tx.ID, tx.Date, tx.Type, tx.Subtype, tx.AmountCents, tx.Status, tx.Vendor, tx.Description, tx.AccountID, tx.UserID}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Type, &t.Subtype, &t.AmountCents, &t.Status, &t.Vendor, &t.Description, &t.AccountID, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTransaction inserts a single transaction.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.Exec(ctx, insertTransactionSQL, transactionArgs(tx)...)
	return err
}

// CreateTransferPair inserts both legs of a transfer in one database transaction, so a
// one-sided transfer can never be persisted.
func (r *PostgresRepository) CreateTransferPair(ctx context.Context, sender, receiver *domain.Transaction) error {
	return pgx.BeginFunc(ctx, r.db, func(dbtx pgx.Tx) error {
		if _, err := dbtx.Exec(ctx, insertTransactionSQL, transactionArgs(sender)...); err != nil {
			return fmt.Errorf("insert sender leg: %w", err)
		}
		if _, err := dbtx.Exec(ctx, insertTransactionSQL, transactionArgs(receiver)...); err != nil {
			return fmt.Errorf("insert receiver leg: %w", err)
		}
		return nil
	})
}

// CreateTransactionsUnordered bulk-inserts via a pgx batch. Failures are collected per
// record so one bad row does not stop the rest; the first error is returned alongside
// the inserted count.
func (r *PostgresRepository) CreateTransactionsUnordered(ctx context.Context, txs []*domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(insertTransactionSQL, transactionArgs(tx)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	var firstErr error
	for range txs {
		if _, err := results.Exec(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	return inserted, firstErr
}

// FindTransactionByID retrieves a transaction by id.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// FindTransactions runs a filtered history query. Date ranges are translated into
// id-range scans over the time-ordered transaction ids.
func (r *PostgresRepository) FindTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if filter.ID != nil {
		tx, err := r.FindTransactionByID(ctx, *filter.ID)
		if err != nil {
			if errors.Is(err, ErrTransactionNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []domain.Transaction{*tx}, nil
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DateFrom != nil || filter.DateTo != nil {
		from := time.Unix(0, 0)
		to := time.Now().UTC()
		if filter.DateFrom != nil {
			from = *filter.DateFrom
		}
		if filter.DateTo != nil {
			to = *filter.DateTo
		}
		lower, upper := domain.TimeRangeIDBounds(from, to)
		conds = append(conds, "t.id >= "+arg(lower), "t.id <= "+arg(upper))
	}
	if filter.Type != nil {
		conds = append(conds, "t.type = "+arg(*filter.Type))
	}
	if filter.Subtype != nil {
		conds = append(conds, "t.subtype = "+arg(*filter.Subtype))
	}
	if filter.Status != nil {
		conds = append(conds, "t.status = "+arg(*filter.Status))
	}
	if filter.Vendor != nil {
		conds = append(conds, "lower(t.vendor) = lower("+arg(*filter.Vendor)+")")
	}
	if filter.AccountID != nil {
		conds = append(conds, "t.account_id = "+arg(*filter.AccountID))
	}
	if filter.AccountNumber != nil {
		conds = append(conds, "t.account_id = (SELECT id FROM accounts WHERE number = "+arg(*filter.AccountNumber)+")")
	}
	if filter.OwnerEmail != nil {
		conds = append(conds, "t.user_id = (SELECT id FROM users WHERE lower(email) = lower(btrim("+arg(*filter.OwnerEmail)+")))")
	}

	query := `SELECT t.id, t.date, t.type, t.subtype, t.amount_cents, t.status, t.vendor, t.description, t.account_id, t.user_id, t.created_at, t.updated_at FROM transactions t`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Type, &t.Subtype, &t.AmountCents, &t.Status, &t.Vendor, &t.Description, &t.AccountID, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindPendingTransactions returns all pending transactions ordered by account, then by
// id. The id order within an account is creation order, which is the order settlement
// must walk.
func (r *PostgresRepository) FindPendingTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'pending'
		ORDER BY account_id, date ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Type, &t.Subtype, &t.AmountCents, &t.Status, &t.Vendor, &t.Description, &t.AccountID, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SettleTransaction claims a pending transaction into a terminal status. The WHERE
// clause on the current status makes the transition at-most-once: a transaction already
// settled by a concurrent run reports claimed=false instead of being overwritten.
func (r *PostgresRepository) SettleTransaction(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// AccountBalances aggregates the account's transactions into the derived balance
// triple. Computed fresh on every call; balances are never cached.
func (r *PostgresRepository) AccountBalances(ctx context.Context, accountID uuid.UUID) (*domain.Balance, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'pending'), 0)
		FROM transactions
		WHERE account_id = $1
	`
	var b domain.Balance
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&b.CurrentCents, &b.PendingCents); err != nil {
		return nil, err
	}
	b.FinalCents = b.CurrentCents + b.PendingCents
	return &b, nil
}

// CompletedBalancesByUser sums completed transaction amounts per user, keeping one
// representative account id per user for the interest payout.
func (r *PostgresRepository) CompletedBalancesByUser(ctx context.Context) ([]domain.UserBalance, error) {
	query := `
		SELECT user_id, MIN(account_id::text)::uuid, SUM(amount_cents)
		FROM transactions
		WHERE status = 'completed'
		GROUP BY user_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserBalance
	for rows.Next() {
		var ub domain.UserBalance
		if err := rows.Scan(&ub.UserID, &ub.AccountID, &ub.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}
