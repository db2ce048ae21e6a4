package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "ledger.events", cfg.EventExchange)
	assert.Equal(t, "*/5 * * * *", cfg.SettlementSchedule)
	assert.Equal(t, "0 0 * * *", cfg.InterestSchedule)
	assert.Equal(t, 0.01, cfg.CashbackRate)
	assert.Equal(t, 0.01, cfg.InterestRate)
	assert.Equal(t, int64(-10000), cfg.OverdraftFloorCents)
	assert.Equal(t, int64(1000), cfg.OverdraftFeeCents)
	assert.Equal(t, 5, cfg.OverdraftCooldownDays)

	assert.True(t, cfg.CashbackVendor("AMZN"))
	assert.True(t, cfg.CashbackVendor("amzn"))
	assert.False(t, cfg.CashbackVendor("SHELL"))
}

func TestLoadConfigNormalization(t *testing.T) {
	t.Setenv("CASHBACK_RATE", "-0.5")
	t.Setenv("INTEREST_RATE", "-0.02")
	t.Setenv("OVERDRAFT_FLOOR_CENTS", "5000")
	t.Setenv("OVERDRAFT_FEE_CENTS", "-750")
	t.Setenv("OVERDRAFT_COOLDOWN_DAYS", "0")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.CashbackRate, "negative rates are coerced to zero")
	assert.Equal(t, 0.0, cfg.InterestRate)
	assert.Equal(t, int64(-5000), cfg.OverdraftFloorCents, "the floor is always negative")
	assert.Equal(t, int64(750), cfg.OverdraftFeeCents, "the fee magnitude is always positive")
	assert.Equal(t, 5, cfg.OverdraftCooldownDays, "a non-positive cooldown falls back to the default")
}

func TestLoadConfigVendorList(t *testing.T) {
	t.Setenv("CASHBACK_VENDORS", " Amzn , BestBuy ,")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.CashbackVendor("AMZN"))
	assert.True(t, cfg.CashbackVendor("bestbuy"))
	assert.False(t, cfg.CashbackVendor(""))
	assert.False(t, cfg.CashbackVendor("TGT"))
}

func TestWithCashbackVendors(t *testing.T) {
	cfg := Config{}.WithCashbackVendors("AMZN", "WMT")

	assert.True(t, cfg.CashbackVendor("amzn"))
	assert.True(t, cfg.CashbackVendor("WMT"))
	assert.False(t, cfg.CashbackVendor("TGT"))
}
