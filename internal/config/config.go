package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName         = "LakayMarket"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultCurrency        = "HTG"
	defaultPublicBaseURL   = "http://localhost:8080"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultCartTTL         = 30 * 24 * time.Hour
	defaultRetryInitial    = 200 * time.Millisecond
	defaultUnionPlusPeriod = 30 * 24 * time.Hour
	defaultMonCashAPIURL   = "https://sandbox.moncashbutton.digicelgroup.com/Api"
	defaultMonCashRedirect = "https://sandbox.moncashbutton.digicelgroup.com/Moncash-middleware"
	devJWTSecret           = "dev-access-secret"
	devRefreshSecret       = "dev-refresh-secret"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Pricing holds the storefront's shipping and tax rules.
type Pricing struct {
	Currency              string
	TaxRate               decimal.Decimal
	ShippingBaseFee       decimal.Decimal
	ShippingPerItemFee    decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ExpressMultiplier     decimal.Decimal
}

// MonCash holds the Digicel MonCash business API credentials.
type MonCash struct {
	APIURL       string
	RedirectURL  string
	ClientID     string
	ClientSecret string
}

// Enabled reports whether credentials were provided.
func (m MonCash) Enabled() bool {
	return m.ClientID != "" && m.ClientSecret != ""
}

// NatCash holds the Natcom NatCash partner API credentials.
type NatCash struct {
	APIURL      string
	PartnerCode string
	Secret      string
}

// Enabled reports whether credentials were provided.
func (n NatCash) Enabled() bool {
	return n.APIURL != "" && n.PartnerCode != "" && n.Secret != ""
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	Env             string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	PublicBaseURL   string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CartTTL         time.Duration

	Pricing Pricing

	PaymentMaxRetries   int
	PaymentRetryInitial time.Duration
	GatewayRPS          float64

	UnionPlusFee    decimal.Decimal
	UnionPlusPeriod time.Duration

	MonCash MonCash
	NatCash NatCash

	MessagingAPIURL   string
	MessagingAPIToken string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		Env:             getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("REFRESH_SECRET"),
		MonCash: MonCash{
			APIURL:       getEnv("MONCASH_API_URL", defaultMonCashAPIURL),
			RedirectURL:  getEnv("MONCASH_REDIRECT_URL", defaultMonCashRedirect),
			ClientID:     os.Getenv("MONCASH_CLIENT_ID"),
			ClientSecret: os.Getenv("MONCASH_CLIENT_SECRET"),
		},
		NatCash: NatCash{
			APIURL:      os.Getenv("NATCASH_API_URL"),
			PartnerCode: os.Getenv("NATCASH_PARTNER_CODE"),
			Secret:      os.Getenv("NATCASH_SECRET"),
		},
		MessagingAPIURL:   os.Getenv("MESSAGING_API_URL"),
		MessagingAPIToken: os.Getenv("MESSAGING_API_TOKEN"),
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = duration("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = duration("REFRESH_TOKEN_TTL", defaultRefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.CartTTL, err = duration("CART_TTL", defaultCartTTL); err != nil {
		return Config{}, err
	}
	if cfg.PaymentRetryInitial, err = duration("PAYMENT_RETRY_INITIAL", defaultRetryInitial); err != nil {
		return Config{}, err
	}
	if cfg.UnionPlusPeriod, err = duration("UNION_PLUS_PERIOD", defaultUnionPlusPeriod); err != nil {
		return Config{}, err
	}

	if cfg.PaymentMaxRetries, err = integer("PAYMENT_MAX_RETRIES", 3); err != nil {
		return Config{}, err
	}
	if cfg.PaymentMaxRetries < 0 {
		return Config{}, fmt.Errorf("PAYMENT_MAX_RETRIES must not be negative")
	}

	cfg.GatewayRPS = 5
	if v := os.Getenv("GATEWAY_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GATEWAY_RPS: %w", err)
		}
		if rps <= 0 {
			return Config{}, fmt.Errorf("GATEWAY_RPS must be positive")
		}
		cfg.GatewayRPS = rps
	}

	cfg.Pricing = Pricing{Currency: strings.ToUpper(getEnv("CURRENCY", defaultCurrency))}
	amounts := []struct {
		key      string
		fallback string
		dst      *decimal.Decimal
	}{
		{"TAX_RATE", "0.10", &cfg.Pricing.TaxRate},
		{"SHIPPING_BASE_FEE", "150", &cfg.Pricing.ShippingBaseFee},
		{"SHIPPING_PER_ITEM_FEE", "25", &cfg.Pricing.ShippingPerItemFee},
		{"FREE_SHIPPING_THRESHOLD", "5000", &cfg.Pricing.FreeShippingThreshold},
		{"EXPRESS_MULTIPLIER", "2", &cfg.Pricing.ExpressMultiplier},
		{"UNION_PLUS_FEE", "500", &cfg.UnionPlusFee},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(getEnv(a.key, a.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", a.key, err)
		}
		if d.IsNegative() {
			return Config{}, fmt.Errorf("%s must not be negative", a.key)
		}
		*a.dst = d
	}
	if cfg.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("TAX_RATE must be below 1")
	}

	if IsDev(cfg.Env) {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = devRefreshSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether env names a development environment where in-memory
// backends are acceptable.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return duration(durationKey, fallback)
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func integer(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
