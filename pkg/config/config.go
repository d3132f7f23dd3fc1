package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Square    SquareConfig
	PayPal    PayPalConfig
	Pricing   PricingConfig
	Usage     UsageConfig
	Downloads DownloadsConfig
	Webhooks  WebhooksConfig
	Cron      CronConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PORTAL_APP_ENV" required:"true"`
	Port         string `envconfig:"PORTAL_APP_PORT" default:"8080"`
	PublicURL    string `envconfig:"PORTAL_PUBLIC_URL"`
	LogLevel     string `envconfig:"PORTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PORTAL_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"PORTAL_AUTO_MIGRATE" default:"false"`
	// CORSOrigins applies to every route except /receipt/usage, which is open.
	CORSOrigins []string `envconfig:"PORTAL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PORTAL_DB_DSN"`

	LegacyHost     string `envconfig:"PORTAL_DB_HOST"`
	LegacyPort     int    `envconfig:"PORTAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PORTAL_DB_USER"`
	LegacyPassword string `envconfig:"PORTAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"PORTAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"PORTAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PORTAL_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PORTAL_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PORTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PORTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PORTAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PORTAL_REDIS_ADDR"`
	Password     string        `envconfig:"PORTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"PORTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PORTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PORTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PORTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PORTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PORTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// StripeConfig holds the per-environment Stripe credentials. Only the
// credentials matching Env are used.
type StripeConfig struct {
	Env               string `envconfig:"PORTAL_STRIPE_ENV" default:"test"`
	TestAPIKey        string `envconfig:"PORTAL_STRIPE_TEST_API_KEY"`
	TestWebhookSecret string `envconfig:"PORTAL_STRIPE_TEST_WEBHOOK_SECRET"`
	LiveAPIKey        string `envconfig:"PORTAL_STRIPE_LIVE_API_KEY"`
	LiveWebhookSecret string `envconfig:"PORTAL_STRIPE_LIVE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// APIKey returns the key for the active environment.
func (s StripeConfig) APIKey() string {
	if s.Environment() == "live" {
		return s.LiveAPIKey
	}
	return s.TestAPIKey
}

// WebhookSecret returns the signing secret for the active environment.
func (s StripeConfig) WebhookSecret() string {
	if s.Environment() == "live" {
		return s.LiveWebhookSecret
	}
	return s.TestWebhookSecret
}

type SquareConfig struct {
	Env                    string        `envconfig:"PORTAL_SQUARE_ENV" default:"sandbox"`
	SandboxAccessToken     string        `envconfig:"PORTAL_SQUARE_SANDBOX_ACCESS_TOKEN"`
	SandboxSignatureKey    string        `envconfig:"PORTAL_SQUARE_SANDBOX_SIGNATURE_KEY"`
	ProductionAccessToken  string        `envconfig:"PORTAL_SQUARE_PRODUCTION_ACCESS_TOKEN"`
	ProductionSignatureKey string        `envconfig:"PORTAL_SQUARE_PRODUCTION_SIGNATURE_KEY"`
	NotificationURL        string        `envconfig:"PORTAL_SQUARE_NOTIFICATION_URL"`
	RequestTimeout         time.Duration `envconfig:"PORTAL_SQUARE_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

func (s SquareConfig) AccessToken() string {
	if s.Environment() == "production" {
		return s.ProductionAccessToken
	}
	return s.SandboxAccessToken
}

func (s SquareConfig) SignatureKey() string {
	if s.Environment() == "production" {
		return s.ProductionSignatureKey
	}
	return s.SandboxSignatureKey
}

type PayPalConfig struct {
	Env                    string        `envconfig:"PORTAL_PAYPAL_ENV" default:"sandbox"`
	SandboxClientID        string        `envconfig:"PORTAL_PAYPAL_SANDBOX_CLIENT_ID"`
	SandboxClientSecret    string        `envconfig:"PORTAL_PAYPAL_SANDBOX_CLIENT_SECRET"`
	SandboxWebhookID       string        `envconfig:"PORTAL_PAYPAL_SANDBOX_WEBHOOK_ID"`
	ProductionClientID     string        `envconfig:"PORTAL_PAYPAL_PRODUCTION_CLIENT_ID"`
	ProductionClientSecret string        `envconfig:"PORTAL_PAYPAL_PRODUCTION_CLIENT_SECRET"`
	ProductionWebhookID    string        `envconfig:"PORTAL_PAYPAL_PRODUCTION_WEBHOOK_ID"`
	RequestTimeout         time.Duration `envconfig:"PORTAL_PAYPAL_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized PayPal environment (sandbox/production).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

func (p PayPalConfig) ClientID() string {
	if p.Environment() == "production" {
		return p.ProductionClientID
	}
	return p.SandboxClientID
}

func (p PayPalConfig) ClientSecret() string {
	if p.Environment() == "production" {
		return p.ProductionClientSecret
	}
	return p.SandboxClientSecret
}

func (p PayPalConfig) WebhookID() string {
	if p.Environment() == "production" {
		return p.ProductionWebhookID
	}
	return p.SandboxWebhookID
}

// PricingConfig keeps the raw override strings. Parsing and fallback to the
// defaults happens in internal/pricing so a bad value never fails startup.
type PricingConfig struct {
	StandardPrice           string `envconfig:"STANDARD_PRICE"`
	PremiumMonthlyPrice     string `envconfig:"PREMIUM_MONTHLY_PRICE"`
	PremiumYearlyPrice      string `envconfig:"PREMIUM_YEARLY_PRICE"`
	PremiumStandardDiscount string `envconfig:"PREMIUM_STANDARD_DISCOUNT"`
	ProcessingFeePercent    string `envconfig:"PROCESSING_FEE_PERCENT"`
	ProcessingFeeFixed      string `envconfig:"PROCESSING_FEE_FIXED"`
}

type UsageConfig struct {
	PremiumMonthlyScanLimit int `envconfig:"PORTAL_PREMIUM_MONTHLY_SCAN_LIMIT" default:"500"`
}

type DownloadsConfig struct {
	InstallersDir string `envconfig:"PORTAL_INSTALLERS_DIR" default:"downloads/avalonia"`
	FilePrefix    string `envconfig:"PORTAL_INSTALLER_PREFIX" default:"Avalonia"`
	RetentionDays int    `envconfig:"PORTAL_DOWNLOAD_RETENTION_DAYS" default:"365"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PORTAL_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// RateLimitConfig throttles the key-checking endpoints per client IP and per
// submitted key. A zero limit disables that scope.
type RateLimitConfig struct {
	Window   time.Duration `envconfig:"PORTAL_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit  int           `envconfig:"PORTAL_RATE_LIMIT_IP" default:"60"`
	KeyLimit int           `envconfig:"PORTAL_RATE_LIMIT_KEY" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PORTAL_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
