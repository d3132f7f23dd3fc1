package config

const EnvPrefix = "PORTAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PORTAL_APP_ENV"
	EnvPort     = "PORTAL_APP_PORT"
	EnvDBDSN    = "PORTAL_DB_DSN"
	EnvDBHost   = "PORTAL_DB_HOST"
	EnvDBUser   = "PORTAL_DB_USER"
	EnvDBName   = "PORTAL_DB_NAME"
	EnvRedisURL = "PORTAL_REDIS_URL"

	EnvStripeEnv           = "PORTAL_STRIPE_ENV"
	EnvStripeTestSecret    = "PORTAL_STRIPE_TEST_WEBHOOK_SECRET"
	EnvStripeLiveSecret    = "PORTAL_STRIPE_LIVE_WEBHOOK_SECRET"
	EnvSquareEnv           = "PORTAL_SQUARE_ENV"
	EnvPayPalEnv           = "PORTAL_PAYPAL_ENV"
	EnvPayPalSandboxHookID = "PORTAL_PAYPAL_SANDBOX_WEBHOOK_ID"

	EnvStandardPrice        = "STANDARD_PRICE"
	EnvProcessingFeePercent = "PROCESSING_FEE_PERCENT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
