package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite          = "STOREFRONT_USE_SQLITE"
	EnvAllowGuestCheckout = "STOREFRONT_ALLOW_GUEST_CHECKOUT"

	EnvCheckoutAttemptTTL = "STOREFRONT_CHECKOUT_ATTEMPT_TTL"

	EnvGCPProjectID         = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubNotifyTopic    = "STOREFRONT_PUBSUB_NOTIFICATION_TOPIC"
	EnvCORSAllowedOrigins   = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvMailerBreakerFailure = "STOREFRONT_MAILER_BREAKER_MAX_FAILURES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
