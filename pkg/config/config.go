package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Trace        TraceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DISPO_APP_ENV" required:"true"`
	Port         string `envconfig:"DISPO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DISPO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISPO_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"DISPO_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"DISPO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISPO_DB_DSN"`
	Driver string `envconfig:"DISPO_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"DISPO_DB_SQLITE_PATH" default:"dispo.db"`

	LegacyHost     string `envconfig:"DISPO_DB_HOST"`
	LegacyPort     int    `envconfig:"DISPO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISPO_DB_USER"`
	LegacyPassword string `envconfig:"DISPO_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISPO_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISPO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISPO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISPO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISPO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISPO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this as warnings; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"DISPO_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISPO_REDIS_URL"`
	Address      string        `envconfig:"DISPO_REDIS_ADDR"`
	Password     string        `envconfig:"DISPO_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISPO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISPO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISPO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISPO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISPO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISPO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISPO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISPO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"DISPO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISPO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DISPO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DISPO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	TransactionsTopic        string `envconfig:"DISPO_PUBSUB_TRANSACTIONS_TOPIC" default:"dispo-transaction-events"`
	TransactionsSubscription string `envconfig:"DISPO_PUBSUB_TRANSACTIONS_SUBSCRIPTION"`
	PickingTopic             string `envconfig:"DISPO_PUBSUB_PICKING_TOPIC" default:"dispo-picking-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DISPO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DISPO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DISPO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// TraceConfig bounds lineage traversal so that a very large or cyclic HU graph cannot
// exhaust the process.
type TraceConfig struct {
	MaxDepth   int `envconfig:"DISPO_TRACE_MAX_DEPTH" default:"256"`
	MaxRecords int `envconfig:"DISPO_TRACE_MAX_RECORDS" default:"10000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = db.SQLitePath
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
