/**
 * @description
 * This file defines the core domain model for ledger transactions. A transaction is a
 * signed monetary entry against an account that starts out `pending` and is moved to
 * exactly one terminal status by the settlement engine (or instantly by its creator for
 * fee/cashback/interest entries).
 *
 * @notes
 * - Amounts are stored as `int64` in cents, which avoids floating-point inaccuracies
 *   with financial data and makes the two-decimal precision rule structural.
 * - Transaction IDs are UUIDv7, so they sort by creation time. Date-range queries are
 *   expressed as id-range scans instead of a separate indexed date column.
 */

package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies the direction of a ledger entry.
type TransactionType string

const (
	TypeDebit      TransactionType = "debit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// TransactionSubtype narrows a type to its business meaning.
type TransactionSubtype string

const (
	SubtypeCredit   TransactionSubtype = "credit"
	SubtypeRefund   TransactionSubtype = "refund"
	SubtypeInterest TransactionSubtype = "interest"
	SubtypeCashback TransactionSubtype = "cashback"
	SubtypePurchase TransactionSubtype = "purchase"
	SubtypeFee      TransactionSubtype = "fee"
	SubtypeTransfer TransactionSubtype = "transfer"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCanceled  TransactionStatus = "canceled"
)

var allowedSubtypes = map[TransactionType][]TransactionSubtype{
	TypeDebit:      {SubtypeCredit, SubtypeRefund, SubtypeInterest, SubtypeCashback},
	TypeWithdrawal: {SubtypePurchase, SubtypeFee, SubtypeTransfer},
}

// ValidType reports whether t is a known transaction type.
func ValidType(t TransactionType) bool {
	_, ok := allowedSubtypes[t]
	return ok
}

// SubtypeAllowed reports whether the subtype belongs to the given type.
func SubtypeAllowed(t TransactionType, s TransactionSubtype) bool {
	for _, allowed := range allowedSubtypes[t] {
		if allowed == s {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known transaction status.
func ValidStatus(s TransactionStatus) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Transaction is the central ledger record. It references exactly one account and the
// account's owning user, denormalized at creation time.
type Transaction struct {
	ID          uuid.UUID          `json:"id"`
	Date        time.Time          `json:"date"`
	Type        TransactionType    `json:"type"`
	Subtype     TransactionSubtype `json:"subtype"`
	AmountCents int64              `json:"amount_cents"`
	Status      TransactionStatus  `json:"status"`
	Vendor      string             `json:"vendor"`
	Description *string            `json:"description,omitempty"`
	AccountID   uuid.UUID          `json:"account_id"`
	UserID      uuid.UUID          `json:"user_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Terminal reports whether the transaction has reached a final status. Terminal
// transactions never transition again.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCanceled
}

// ValidateAmountSign enforces the sign rule: debits are strictly positive, withdrawals
// strictly negative.
func ValidateAmountSign(t TransactionType, amountCents int64) error {
	switch t {
	case TypeDebit:
		if amountCents <= 0 {
			return fmt.Errorf("debit amount must be positive, got %d cents", amountCents)
		}
	case TypeWithdrawal:
		if amountCents >= 0 {
			return fmt.Errorf("withdrawal amount must be negative, got %d cents", amountCents)
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t)
	}
	return nil
}

// ParseAmount converts a decimal string such as "-20.50" into cents. It rejects more
// than two fractional digits rather than rounding, because precision violations must
// fail at creation.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than 2 decimal digits", raw)
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	cents64, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	total := units*100 + cents64
	if negative {
		total = -total
	}
	return total, nil
}

// FormatAmount renders cents as a two-decimal string, the inverse of ParseAmount.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// RoundRate applies a fractional rate to an amount in cents, rounding half away from
// zero to the nearest cent.
func RoundRate(amountCents int64, rate float64) int64 {
	return int64(math.Round(float64(amountCents) * rate))
}

// NewTransactionID returns a time-ordered (UUIDv7) identifier. Falls back to a random
// UUID only if the system clock source fails, which keeps creation infallible.
func NewTransactionID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// TimeRangeIDBounds converts a wall-clock range into UUIDv7 id bounds. The lower bound
// is the smallest possible id minted at `from`; the upper bound is the largest possible
// id minted at `to`.
func TimeRangeIDBounds(from, to time.Time) (uuid.UUID, uuid.UUID) {
	return idBound(from, 0x00), idBound(to, 0xff)
}

func idBound(t time.Time, fill byte) uuid.UUID {
	var id uuid.UUID
	ms := uint64(t.UnixMilli())
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	for i := 6; i < len(id); i++ {
		id[i] = fill
	}
	// Keep version (7) and RFC 4122 variant bits fixed so bounds bracket real v7 ids.
	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}
