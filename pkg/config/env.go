package config

// EnvPrefix is handed to envconfig; every field declares its full variable name.
const EnvPrefix = "STACKFINDERZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STACKFINDERZ_APP_ENV"
	EnvPort         = "STACKFINDERZ_APP_PORT"
	EnvLogLevel     = "STACKFINDERZ_LOG_LEVEL"
	EnvLogWarnStack = "STACKFINDERZ_LOG_WARN_STACK"
	EnvLogFormat    = "STACKFINDERZ_LOG_FORMAT"

	EnvDBDSN      = "STACKFINDERZ_DB_DSN"
	EnvDBDriver   = "STACKFINDERZ_DB_DRIVER"
	EnvDBHost     = "STACKFINDERZ_DB_HOST"
	EnvDBPort     = "STACKFINDERZ_DB_PORT"
	EnvDBUser     = "STACKFINDERZ_DB_USER"
	EnvDBPassword = "STACKFINDERZ_DB_PASSWORD"
	EnvDBName     = "STACKFINDERZ_DB_NAME"
	EnvDBSSLMode  = "STACKFINDERZ_DB_SSLMODE"

	EnvRedisURL = "STACKFINDERZ_REDIS_URL"

	EnvJWTSecret              = "STACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer              = "STACKFINDERZ_JWT_ISSUER"
	EnvJWTExpMins             = "STACKFINDERZ_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STACKFINDERZ_REFRESH_TOKEN_TTL_MINUTES"

	EnvCORSAllowedOrigins = "STACKFINDERZ_CORS_ALLOWED_ORIGINS"

	EnvGCPProjectID         = "STACKFINDERZ_GCP_PROJECT_ID"
	EnvPubSubDomainTopic    = "STACKFINDERZ_PUBSUB_DOMAIN_TOPIC"
	EnvBigQueryDataset      = "STACKFINDERZ_BIGQUERY_DATASET"
	EnvBigQueryStatsTable   = "STACKFINDERZ_BIGQUERY_STATS_TABLE"
	EnvBigQueryEnabled      = "STACKFINDERZ_BIGQUERY_ENABLED"
	EnvCronReconcileBatch   = "STACKFINDERZ_CRON_RECONCILE_BATCH_SIZE"
	EnvSeedAdminEmail       = "STACKFINDERZ_SEED_ADMIN_EMAIL"
	EnvSeedAdminPassword    = "STACKFINDERZ_SEED_ADMIN_PASSWORD"
	EnvOutboxMaxAttempts    = "STACKFINDERZ_OUTBOX_MAX_ATTEMPTS"
	EnvFeatureAutoMigrate   = "STACKFINDERZ_AUTO_MIGRATE"
	EnvReviewerNotesMaxSize = "STACKFINDERZ_REVIEW_NOTES_MAX_LEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
