package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionFilter describes a transaction history query. An id-based lookup is
// mutually exclusive with every other criterion, and account-id is mutually exclusive
// with account-number.
type TransactionFilter struct {
	ID            *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Type          *TransactionType
	Subtype       *TransactionSubtype
	Status        *TransactionStatus
	Vendor        *string
	AccountID     *uuid.UUID
	AccountNumber *string
	OwnerEmail    *string
}

// Validate enforces the filter's exclusivity rules and enum values.
func (f TransactionFilter) Validate() error {
	if f.ID != nil && f.hasCriteria() {
		return NewValidationError("id lookup cannot be combined with other filters")
	}
	if f.AccountID != nil && f.AccountNumber != nil {
		return NewValidationError("filter by account id or account number, not both")
	}
	if f.Type != nil && !ValidType(*f.Type) {
		return NewValidationError("unknown transaction type")
	}
	if f.Subtype != nil {
		if f.Type == nil {
			return NewValidationError("subtype filter requires a type filter")
		}
		if !SubtypeAllowed(*f.Type, *f.Subtype) {
			return NewValidationError("subtype does not belong to the given type")
		}
	}
	if f.Status != nil && !ValidStatus(*f.Status) {
		return NewValidationError("unknown transaction status")
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return NewValidationError("date range end precedes start")
	}
	return nil
}

func (f TransactionFilter) hasCriteria() bool {
	return f.DateFrom != nil || f.DateTo != nil || f.Type != nil || f.Subtype != nil ||
		f.Status != nil || f.Vendor != nil || f.AccountID != nil || f.AccountNumber != nil ||
		f.OwnerEmail != nil
}
