package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "whole units", raw: "100", want: 10000},
		{name: "two decimals", raw: "20.50", want: 2050},
		{name: "negative", raw: "-20.50", want: -2050},
		{name: "explicit plus", raw: "+3.1", want: 310},
		{name: "cents only", raw: "0.05", want: 5},
		{name: "bare fraction", raw: ".5", want: 50},
		{name: "surrounding whitespace", raw: " 12.00 ", want: 1200},
		{name: "empty", raw: "", wantErr: true},
		{name: "three decimals rejected not rounded", raw: "1.005", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "double dot", raw: "1.2.3", wantErr: true},
		{name: "lone sign", raw: "-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "20.50", FormatAmount(2050))
	assert.Equal(t, "-0.05", FormatAmount(-5))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "100.00", FormatAmount(10000))
}

func TestValidateAmountSign(t *testing.T) {
	tests := []struct {
		name    string
		typ     TransactionType
		amount  int64
		wantErr bool
	}{
		{name: "positive debit", typ: TypeDebit, amount: 100},
		{name: "negative withdrawal", typ: TypeWithdrawal, amount: -100},
		{name: "negative debit", typ: TypeDebit, amount: -100, wantErr: true},
		{name: "zero debit", typ: TypeDebit, amount: 0, wantErr: true},
		{name: "positive withdrawal", typ: TypeWithdrawal, amount: 100, wantErr: true},
		{name: "zero withdrawal", typ: TypeWithdrawal, amount: 0, wantErr: true},
		{name: "unknown type", typ: "transfer", amount: 100, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmountSign(tt.typ, tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubtypeAllowed(t *testing.T) {
	assert.True(t, SubtypeAllowed(TypeDebit, SubtypeCredit))
	assert.True(t, SubtypeAllowed(TypeDebit, SubtypeInterest))
	assert.True(t, SubtypeAllowed(TypeDebit, SubtypeCashback))
	assert.True(t, SubtypeAllowed(TypeDebit, SubtypeRefund))
	assert.True(t, SubtypeAllowed(TypeWithdrawal, SubtypePurchase))
	assert.True(t, SubtypeAllowed(TypeWithdrawal, SubtypeFee))
	assert.True(t, SubtypeAllowed(TypeWithdrawal, SubtypeTransfer))

	assert.False(t, SubtypeAllowed(TypeDebit, SubtypePurchase))
	assert.False(t, SubtypeAllowed(TypeWithdrawal, SubtypeCashback))
	assert.False(t, SubtypeAllowed(TypeWithdrawal, SubtypeCredit))
}

func TestTerminal(t *testing.T) {
	for status, want := range map[TransactionStatus]bool{
		StatusPending:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	} {
		tx := Transaction{Status: status}
		assert.Equal(t, want, tx.Terminal(), "status %s", status)
	}
}

func TestRoundRate(t *testing.T) {
	assert.Equal(t, int64(20), RoundRate(2000, 0.01))
	assert.Equal(t, int64(1), RoundRate(50, 0.01), "half rounds away from zero")
	assert.Equal(t, int64(0), RoundRate(49, 0.01))
	assert.Equal(t, int64(0), RoundRate(2000, 0))
}

func TestTransactionIDsSortByCreationTime(t *testing.T) {
	first := NewTransactionID()
	time.Sleep(5 * time.Millisecond)
	second := NewTransactionID()

	assert.Negative(t, bytes.Compare(first[:], second[:]))
}

func TestTimeRangeIDBoundsBracketMintedIDs(t *testing.T) {
	now := time.Now()
	id := NewTransactionID()

	lo, hi := TimeRangeIDBounds(now.Add(-time.Minute), now.Add(time.Minute))

	assert.LessOrEqual(t, bytes.Compare(lo[:], id[:]), 0)
	assert.LessOrEqual(t, bytes.Compare(id[:], hi[:]), 0)

	// Bounds carry valid v7 version and variant bits so they compare against real ids.
	assert.Equal(t, byte(0x70), lo[6]&0xf0)
	assert.Equal(t, byte(0x80), lo[8]&0xc0)
	assert.Equal(t, byte(0x70), hi[6]&0xf0)
	assert.Equal(t, byte(0x80), hi[8]&0xc0)
}
