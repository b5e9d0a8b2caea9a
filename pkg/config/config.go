package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BRIGHTLENS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRIGHTLENS_DB_DSN"
	EnvDBHost = "BRIGHTLENS_DB_HOST"
	EnvDBUser = "BRIGHTLENS_DB_USER"
	EnvDBName = "BRIGHTLENS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Stripe     StripeConfig
	Settlement SettlementConfig
	Migrate    MigrateConfig
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
	Env          string `envconfig:"BRIGHTLENS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BRIGHTLENS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIGHTLENS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRIGHTLENS_SERVICE_KIND" default:"payouts-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"BRIGHTLENS_DB_DSN"`
	Driver string `envconfig:"BRIGHTLENS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRIGHTLENS_DB_HOST"`
	LegacyPort     int    `envconfig:"BRIGHTLENS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRIGHTLENS_DB_USER"`
	LegacyPassword string `envconfig:"BRIGHTLENS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRIGHTLENS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRIGHTLENS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIGHTLENS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIGHTLENS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIGHTLENS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIGHTLENS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIGHTLENS_REDIS_URL"`
	Address      string        `envconfig:"BRIGHTLENS_REDIS_ADDR"`
	Password     string        `envconfig:"BRIGHTLENS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIGHTLENS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIGHTLENS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIGHTLENS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIGHTLENS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIGHTLENS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIGHTLENS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRIGHTLENS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BRIGHTLENS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRIGHTLENS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrderApprovedTopic        string `envconfig:"BRIGHTLENS_PUBSUB_ORDER_APPROVED_TOPIC" default:"bl-order-approved"`
	OrderApprovedSubscription string `envconfig:"BRIGHTLENS_PUBSUB_ORDER_APPROVED_SUBSCRIPTION" required:"true"`
	OrderRefundedTopic        string `envconfig:"BRIGHTLENS_PUBSUB_ORDER_REFUNDED_TOPIC" default:"bl-order-refunded"`
	OrderRefundedSubscription string `envconfig:"BRIGHTLENS_PUBSUB_ORDER_REFUNDED_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BRIGHTLENS_STRIPE_API_KEY"`
	Env    string `envconfig:"BRIGHTLENS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SettlementConfig struct {
	StuckLockThreshold time.Duration `envconfig:"BRIGHTLENS_SETTLEMENT_STUCK_LOCK_THRESHOLD" default:"24h"`
	SweeperInterval    time.Duration `envconfig:"BRIGHTLENS_SETTLEMENT_SWEEPER_INTERVAL" default:"1h"`
}

type MigrateConfig struct {
	AutoMigrate bool `envconfig:"BRIGHTLENS_AUTO_MIGRATE" default:"false"`
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
