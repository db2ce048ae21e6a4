/**
 * @description
 * Configuration management for the ledger-service. Uses Viper to read settings from
 * environment variables with an optional .env file, mirroring how the other services
 * in the platform load their configuration.
 *
 * @dependencies
 * - github.com/spf13/viper: environment/config binding.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the ledger-service.
type Config struct {
	ServerPort            string  `mapstructure:"SERVER_PORT"`
	DatabaseURL           string  `mapstructure:"DATABASE_URL"`
	RedisURL              string  `mapstructure:"REDIS_URL"`
	RabbitMQURL           string  `mapstructure:"RABBITMQ_URL"`
	EventExchange         string  `mapstructure:"EVENT_EXCHANGE"`
	SettlementSchedule    string  `mapstructure:"SETTLEMENT_SCHEDULE"`
	InterestSchedule      string  `mapstructure:"INTEREST_SCHEDULE"`
	CashbackRate          float64 `mapstructure:"CASHBACK_RATE"`
	InterestRate          float64 `mapstructure:"INTEREST_RATE"`
	OverdraftFloorCents   int64   `mapstructure:"OVERDRAFT_FLOOR_CENTS"`
	OverdraftFeeCents     int64   `mapstructure:"OVERDRAFT_FEE_CENTS"`
	OverdraftCooldownDays int     `mapstructure:"OVERDRAFT_COOLDOWN_DAYS"`
	CashbackVendors       string  `mapstructure:"CASHBACK_VENDORS"`

	cashbackVendorSet map[string]struct{}
}

// LoadConfig reads configuration from the environment (and an optional .env file in
// path) into a Config, applying defaults and normalization.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("SETTLEMENT_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("INTEREST_SCHEDULE", "0 0 * * *")
	viper.SetDefault("CASHBACK_RATE", 0.01)
	viper.SetDefault("INTEREST_RATE", 0.01)
	viper.SetDefault("OVERDRAFT_FLOOR_CENTS", -10000)
	viper.SetDefault("OVERDRAFT_FEE_CENTS", 1000)
	viper.SetDefault("OVERDRAFT_COOLDOWN_DAYS", 5)
	viper.SetDefault("CASHBACK_VENDORS", "AMZN,WMT,TGT")

	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "REDIS_URL", "RABBITMQ_URL", "EVENT_EXCHANGE",
		"SETTLEMENT_SCHEDULE", "INTEREST_SCHEDULE", "CASHBACK_RATE", "INTEREST_RATE",
		"OVERDRAFT_FLOOR_CENTS", "OVERDRAFT_FEE_CENTS", "OVERDRAFT_COOLDOWN_DAYS",
		"CASHBACK_VENDORS",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	if cfg.CashbackRate < 0 {
		log.Printf("level=warn component=config msg=\"negative cashback rate configured; coercing to zero\" rate=%f", cfg.CashbackRate)
		cfg.CashbackRate = 0
	}
	if cfg.InterestRate < 0 {
		log.Printf("level=warn component=config msg=\"negative interest rate configured; coercing to zero\" rate=%f", cfg.InterestRate)
		cfg.InterestRate = 0
	}
	if cfg.OverdraftFloorCents > 0 {
		cfg.OverdraftFloorCents = -cfg.OverdraftFloorCents
	}
	if cfg.OverdraftFeeCents < 0 {
		cfg.OverdraftFeeCents = -cfg.OverdraftFeeCents
	}
	if cfg.OverdraftCooldownDays <= 0 {
		cfg.OverdraftCooldownDays = 5
	}

	cfg.cashbackVendorSet = make(map[string]struct{})
	for _, v := range strings.Split(cfg.CashbackVendors, ",") {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			cfg.cashbackVendorSet[v] = struct{}{}
		}
	}

	return cfg, nil
}

// CashbackVendor reports whether the vendor is cashback-eligible. The comparison is
// case-insensitive.
func (c Config) CashbackVendor(vendor string) bool {
	_, ok := c.cashbackVendorSet[strings.ToLower(strings.TrimSpace(vendor))]
	return ok
}

// WithCashbackVendors returns a copy of the config with the vendor allowlist replaced.
// Used by tests that build configs without going through viper.
func (c Config) WithCashbackVendors(vendors ...string) Config {
	c.cashbackVendorSet = make(map[string]struct{}, len(vendors))
	for _, v := range vendors {
		c.cashbackVendorSet[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	c.CashbackVendors = strings.Join(vendors, ",")
	return c
}
