package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "LakayMarket", cfg.AppName)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "HTG", cfg.Pricing.Currency)
	assert.True(t, cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.Pricing.FreeShippingThreshold.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 3, cfg.PaymentMaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.MonCash.Enabled())
	assert.False(t, cfg.NatCash.Enabled())
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/store")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("TAX_RATE", "0.15")
	t.Setenv("SHIPPING_BASE_FEE", "200")
	t.Setenv("PAYMENT_MAX_RETRIES", "5")
	t.Setenv("GATEWAY_RPS", "2.5")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.True(t, cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, cfg.Pricing.ShippingBaseFee.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 5, cfg.PaymentMaxRetries)
	assert.Equal(t, 2.5, cfg.GatewayRPS)
	assert.Equal(t, "https://shop.example", cfg.PublicBaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"TAX_RATE":            "1.5",
		"SHIPPING_BASE_FEE":   "-1",
		"CART_TTL":            "forever",
		"PAYMENT_MAX_RETRIES": "many",
		"GATEWAY_RPS":         "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
