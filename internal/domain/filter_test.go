package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransactionFilterValidate(t *testing.T) {
	id := uuid.New()
	accountID := uuid.New()
	number := "123456789012"
	vendor := "AMZN"
	typDebit := TypeDebit
	typWithdrawal := TypeWithdrawal
	typBogus := TransactionType("bogus")
	subPurchase := SubtypePurchase
	statusPending := StatusPending
	statusBogus := TransactionStatus("bogus")
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(24 * time.Hour)

	tests := []struct {
		name    string
		filter  TransactionFilter
		wantErr bool
	}{
		{name: "empty filter", filter: TransactionFilter{}},
		{name: "id only", filter: TransactionFilter{ID: &id}},
		{name: "id with other criteria", filter: TransactionFilter{ID: &id, Vendor: &vendor}, wantErr: true},
		{name: "account id and number together", filter: TransactionFilter{AccountID: &accountID, AccountNumber: &number}, wantErr: true},
		{name: "unknown type", filter: TransactionFilter{Type: &typBogus}, wantErr: true},
		{name: "subtype without type", filter: TransactionFilter{Subtype: &subPurchase}, wantErr: true},
		{name: "subtype under wrong type", filter: TransactionFilter{Type: &typDebit, Subtype: &subPurchase}, wantErr: true},
		{name: "subtype under matching type", filter: TransactionFilter{Type: &typWithdrawal, Subtype: &subPurchase}},
		{name: "unknown status", filter: TransactionFilter{Status: &statusBogus}, wantErr: true},
		{name: "valid status", filter: TransactionFilter{Status: &statusPending}},
		{name: "inverted date range", filter: TransactionFilter{DateFrom: &later, DateTo: &earlier}, wantErr: true},
		{name: "valid date range", filter: TransactionFilter{DateFrom: &earlier, DateTo: &later}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
