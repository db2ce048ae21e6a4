/**
 * @description
 * Account and balance domain models. An account is a debit-card-backed ledger owned by
 * exactly one user. Balances are derived from the transaction history on every read and
 * are never persisted, because settlement mutates transaction status frequently.
 */

package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Account represents a user's debit-card ledger.
type Account struct {
	ID                 uuid.UUID  `json:"id"`
	Number             string     `json:"number"`
	LastFour           string     `json:"last_four"`
	Active             bool       `json:"active"`
	UserID             uuid.UUID  `json:"user_id"`
	LastOverdraftFeeAt *time.Time `json:"last_overdraft_fee_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// AuditRecord implements the Audited interface for accounts.
func (a *Account) AuditRecord(actor, action string) AuditEntry {
	return AuditEntry{
		EntityType: "account",
		EntityID:   a.ID,
		At:         time.Now().UTC(),
		Actor:      actor,
		Action:     action,
	}
}

const accountNumberDigits = 12

// NewAccountNumber generates a random numeric account number. Uniqueness is enforced by
// the database constraint; a collision surfaces as a creation error.
func NewAccountNumber() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(accountNumberDigits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}
	return fmt.Sprintf("%0*d", accountNumberDigits, n), nil
}

// MaskLastFour returns the trailing four digits of an account number.
func MaskLastFour(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}

// Balance is the derived balance triple for an account. FinalCents is always the sum of
// the other two.
type Balance struct {
	CurrentCents int64 `json:"current_cents"`
	PendingCents int64 `json:"pending_cents"`
	FinalCents   int64 `json:"final_cents"`
}

// User is the minimal owner view the ledger needs.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// UserBalance is one row of the per-user completed-balance aggregation used by interest
// accrual. AccountID is a representative account for the user.
type UserBalance struct {
	UserID     uuid.UUID
	AccountID  uuid.UUID
	TotalCents int64
}
