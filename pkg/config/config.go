package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Review        ReviewConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Seed          SeedConfig
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
	Env          string `envconfig:"STACKFINDERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"STACKFINDERZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STACKFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STACKFINDERZ_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STACKFINDERZ_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STACKFINDERZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STACKFINDERZ_DB_DSN"`
	Driver string `envconfig:"STACKFINDERZ_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STACKFINDERZ_DB_HOST"`
	Port     int    `envconfig:"STACKFINDERZ_DB_PORT" default:"5432"`
	User     string `envconfig:"STACKFINDERZ_DB_USER"`
	Password string `envconfig:"STACKFINDERZ_DB_PASSWORD"`
	Name     string `envconfig:"STACKFINDERZ_DB_NAME"`
	SSLMode  string `envconfig:"STACKFINDERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STACKFINDERZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STACKFINDERZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STACKFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STACKFINDERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STACKFINDERZ_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"STACKFINDERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STACKFINDERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STACKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STACKFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STACKFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STACKFINDERZ_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STACKFINDERZ_JWT_ISSUER" default:"stackfinderz"`
	ExpirationMinutes      int    `envconfig:"STACKFINDERZ_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"STACKFINDERZ_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STACKFINDERZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STACKFINDERZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STACKFINDERZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STACKFINDERZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STACKFINDERZ_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STACKFINDERZ_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	// Submissions are limited per authenticated user.
	ContributionWindow    time.Duration `envconfig:"STACKFINDERZ_RATE_LIMIT_CONTRIBUTION_WINDOW" default:"1h"`
	ContributionUserLimit int           `envconfig:"STACKFINDERZ_RATE_LIMIT_CONTRIBUTION_USER_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STACKFINDERZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STACKFINDERZ_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STACKFINDERZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type ReviewConfig struct {
	NotesMaxLength int `envconfig:"STACKFINDERZ_REVIEW_NOTES_MAX_LEN" default:"1000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STACKFINDERZ_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STACKFINDERZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STACKFINDERZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"STACKFINDERZ_PUBSUB_DOMAIN_TOPIC" default:"sf-domain-events"`
	DomainSubscription string `envconfig:"STACKFINDERZ_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Enabled    bool   `envconfig:"STACKFINDERZ_BIGQUERY_ENABLED" default:"false"`
	Dataset    string `envconfig:"STACKFINDERZ_BIGQUERY_DATASET" default:"stackfinderz"`
	StatsTable string `envconfig:"STACKFINDERZ_BIGQUERY_STATS_TABLE" default:"catalog_stats_snapshots"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STACKFINDERZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STACKFINDERZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STACKFINDERZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"STACKFINDERZ_CRON_INTERVAL" default:"5m"`
	LockTTL            time.Duration `envconfig:"STACKFINDERZ_CRON_LOCK_TTL" default:"4m"`
	ReconcileBatchSize int           `envconfig:"STACKFINDERZ_CRON_RECONCILE_BATCH_SIZE" default:"100"`
	ReconcileGrace     time.Duration `envconfig:"STACKFINDERZ_CRON_RECONCILE_GRACE" default:"2m"`
	OutboxRetention    time.Duration `envconfig:"STACKFINDERZ_CRON_OUTBOX_RETENTION" default:"720h"`
}

type SeedConfig struct {
	AdminUsername string `envconfig:"STACKFINDERZ_SEED_ADMIN_USERNAME" default:"admin"`
	AdminEmail    string `envconfig:"STACKFINDERZ_SEED_ADMIN_EMAIL" default:"admin@stackfinderz.dev"`
	AdminPassword string `envconfig:"STACKFINDERZ_SEED_ADMIN_PASSWORD"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	missing := []string{}
	for _, env := range legacyDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
