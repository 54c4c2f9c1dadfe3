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
	JWT       JWTConfig
	Payments  PaymentsConfig
	Sync      SyncConfig
	Barcode   BarcodeConfig
	Tax       TaxConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	AuditFeed AuditFeedConfig
	Flags     FeatureFlagsConfig
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
	Env          string `envconfig:"TILLCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"TILLCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TILLCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TILLCORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TILLCORE_DB_DSN"`
	Driver string `envconfig:"TILLCORE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TILLCORE_DB_HOST"`
	Port     int    `envconfig:"TILLCORE_DB_PORT" default:"5432"`
	User     string `envconfig:"TILLCORE_DB_USER"`
	Password string `envconfig:"TILLCORE_DB_PASSWORD"`
	Name     string `envconfig:"TILLCORE_DB_NAME"`
	SSLMode  string `envconfig:"TILLCORE_DB_SSLMODE" default:"disable"`

	// SQLitePath backs the embedded till database when the sqlite driver is
	// selected (offline-capable tills).
	SQLitePath string `envconfig:"TILLCORE_DB_SQLITE_PATH" default:"tillcore.db"`

	MaxOpenConns    int           `envconfig:"TILLCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TILLCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TILLCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TILLCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// UseSQLite reports whether the embedded sqlite driver is configured.
func (db DBConfig) UseSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"TILLCORE_REDIS_URL"`
	Address      string        `envconfig:"TILLCORE_REDIS_ADDR"`
	Password     string        `envconfig:"TILLCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TILLCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TILLCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TILLCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TILLCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TILLCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TILLCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TILLCORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TILLCORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TILLCORE_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PaymentsConfig struct {
	// OverpaymentToleranceCents is the maximum amount by which attached
	// payments may exceed a sale total before the attach is rejected.
	OverpaymentToleranceCents int64 `envconfig:"TILLCORE_PAYMENTS_OVERPAYMENT_TOLERANCE_CENTS" default:"0"`
}

type SyncConfig struct {
	ReplayTimeout  time.Duration `envconfig:"TILLCORE_SYNC_REPLAY_TIMEOUT" default:"15s"`
	RetryBaseDelay time.Duration `envconfig:"TILLCORE_SYNC_RETRY_BASE_DELAY" default:"250ms"`
	RetryMaxDelay  time.Duration `envconfig:"TILLCORE_SYNC_RETRY_MAX_DELAY" default:"5s"`
	MaxAttempts    uint64        `envconfig:"TILLCORE_SYNC_MAX_ATTEMPTS" default:"4"`
	DrainBatchSize int           `envconfig:"TILLCORE_SYNC_DRAIN_BATCH_SIZE" default:"200"`
}

type BarcodeConfig struct {
	// TotalDigits is the full code length including the check digit.
	TotalDigits int `envconfig:"TILLCORE_BARCODE_TOTAL_DIGITS" default:"13"`
}

type TaxConfig struct {
	// DefaultRatePercent applies when no per-product rate is registered.
	DefaultRatePercent string `envconfig:"TILLCORE_TAX_DEFAULT_RATE_PERCENT" default:"0"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TILLCORE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TILLCORE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"TILLCORE_PUBSUB_AUDIT_TOPIC" default:"tillcore-audit-feed"`
}

type AuditFeedConfig struct {
	BatchSize      int `envconfig:"TILLCORE_AUDIT_FEED_BATCH_SIZE" default:"100"`
	PollIntervalMS int `envconfig:"TILLCORE_AUDIT_FEED_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"TILLCORE_AUDIT_FEED_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TILLCORE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.UseSQLite() {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
