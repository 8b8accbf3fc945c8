package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"
	EnvCORSOrigins  = "STOREFRONT_CORS_ORIGINS"

	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBDriver   = "STOREFRONT_DB_DRIVER"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBPort     = "STOREFRONT_DB_PORT"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBPassword = "STOREFRONT_DB_PASSWORD"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvDBSSLMode  = "STOREFRONT_DB_SSLMODE"

	EnvDBSlowQueryThreshold = "STOREFRONT_DB_SLOW_QUERY_THRESHOLD"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "STOREFRONT_USE_SQLITE"
	EnvAutoMigrate = "STOREFRONT_AUTO_MIGRATE"

	EnvFreeShippingThreshold = "STOREFRONT_SHOP_FREE_SHIPPING_THRESHOLD"
	EnvFlatShippingFee       = "STOREFRONT_SHOP_FLAT_SHIPPING_FEE"
	EnvOrderNumberAttempts   = "STOREFRONT_SHOP_ORDER_NUMBER_ATTEMPTS"
	EnvStrictPricing         = "STOREFRONT_SHOP_STRICT_PRICING"
	EnvMaxLineQuantity       = "STOREFRONT_SHOP_MAX_LINE_QUANTITY"

	EnvCartTTL = "STOREFRONT_CART_TTL"

	EnvPaymentServerKey      = "STOREFRONT_PAYMENT_SERVER_KEY"
	EnvPaymentIdempotencyTTL = "STOREFRONT_PAYMENT_IDEMPOTENCY_TTL"

	EnvRateLimitWindow      = "STOREFRONT_RATE_LIMIT_WINDOW"
	EnvOrderRateLimit       = "STOREFRONT_RATE_LIMIT_ORDER_LIMIT"
	EnvWebhookRateLimit     = "STOREFRONT_RATE_LIMIT_WEBHOOK_LIMIT"
	EnvLoginRateLimitWindow = "STOREFRONT_RATE_LIMIT_LOGIN_WINDOW"
	EnvLoginRateLimit       = "STOREFRONT_RATE_LIMIT_LOGIN_LIMIT"

	EnvAdminBootstrapEmail    = "STOREFRONT_ADMIN_BOOTSTRAP_EMAIL"
	EnvAdminBootstrapPassword = "STOREFRONT_ADMIN_BOOTSTRAP_PASSWORD"

	EnvGCPProjectID       = "STOREFRONT_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "STOREFRONT_GCP_CREDENTIALS_JSON"

	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubPaymentsTopic = "STOREFRONT_PUBSUB_PAYMENTS_TOPIC"

	EnvOutboxBatchSize   = "STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS      = "STOREFRONT_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxMetricsAddr = "STOREFRONT_OUTBOX_METRICS_ADDR"

	EnvCronInterval            = "STOREFRONT_CRON_INTERVAL"
	EnvCronLockTTL             = "STOREFRONT_CRON_LOCK_TTL"
	EnvCronJobTimeout          = "STOREFRONT_CRON_JOB_TIMEOUT"
	EnvCronOutboxRetentionDays = "STOREFRONT_CRON_OUTBOX_RETENTION_DAYS"
	EnvCronDLQRetentionDays    = "STOREFRONT_CRON_DLQ_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
