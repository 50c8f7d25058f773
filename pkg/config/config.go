package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BUNDLEHUB_DB_DSN"
	EnvDBHost = "BUNDLEHUB_DB_HOST"
	EnvDBUser = "BUNDLEHUB_DB_USER"
	EnvDBName = "BUNDLEHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Paystack      PaystackConfig
	Providers     ProvidersConfig
	Commissions   CommissionsConfig
	Subscriptions SubscriptionsConfig
	Recon         ReconConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Providers.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BUNDLEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"BUNDLEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BUNDLEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BUNDLEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BUNDLEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BUNDLEHUB_DB_DSN"`
	Driver string `envconfig:"BUNDLEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BUNDLEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"BUNDLEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BUNDLEHUB_DB_USER"`
	LegacyPassword string `envconfig:"BUNDLEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"BUNDLEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"BUNDLEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BUNDLEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BUNDLEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BUNDLEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BUNDLEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"BUNDLEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"BUNDLEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BUNDLEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BUNDLEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BUNDLEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BUNDLEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BUNDLEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BUNDLEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BUNDLEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BUNDLEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BUNDLEHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BUNDLEHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BUNDLEHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BUNDLEHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BUNDLEHUB_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BUNDLEHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BUNDLEHUB_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"BUNDLEHUB_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"BUNDLEHUB_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"BUNDLEHUB_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"BUNDLEHUB_PAYSTACK_TIMEOUT" default:"15s"`
}

// ProvidersConfig drives provider routing: swiftlink is active inside the
// daily window, datanet outside it, unless a persisted override says otherwise.
type ProvidersConfig struct {
	SwiftlinkBaseURL string        `envconfig:"BUNDLEHUB_SWIFTLINK_BASE_URL" default:"https://api.swiftlinkgh.com"`
	SwiftlinkAPIKey  string        `envconfig:"BUNDLEHUB_SWIFTLINK_API_KEY"`
	DatanetBaseURL   string        `envconfig:"BUNDLEHUB_DATANET_BASE_URL" default:"https://api.datanet.com.gh"`
	DatanetAPIKey    string        `envconfig:"BUNDLEHUB_DATANET_API_KEY"`
	Timeout          time.Duration `envconfig:"BUNDLEHUB_PROVIDER_TIMEOUT" default:"20s"`

	ScheduleTimezone    string `envconfig:"BUNDLEHUB_PROVIDER_SCHEDULE_TZ" default:"Africa/Accra"`
	ScheduleWindowStart string `envconfig:"BUNDLEHUB_PROVIDER_WINDOW_START" default:"08:00"`
	ScheduleWindowEnd   string `envconfig:"BUNDLEHUB_PROVIDER_WINDOW_END" default:"20:00"`
}

func (p ProvidersConfig) validate() error {
	if _, err := time.LoadLocation(p.ScheduleTimezone); err != nil {
		return fmt.Errorf("invalid provider schedule timezone %q: %w", p.ScheduleTimezone, err)
	}
	for _, raw := range []string{p.ScheduleWindowStart, p.ScheduleWindowEnd} {
		if _, err := time.Parse("15:04", raw); err != nil {
			return fmt.Errorf("invalid provider window boundary %q: %w", raw, err)
		}
	}
	return nil
}

// CommissionsConfig holds the per-level referral commission rate table.
type CommissionsConfig struct {
	Level1Rate decimal.Decimal `envconfig:"BUNDLEHUB_COMMISSION_RATE_L1" default:"0.03"`
	Level2Rate decimal.Decimal `envconfig:"BUNDLEHUB_COMMISSION_RATE_L2" default:"0.02"`
	Level3Rate decimal.Decimal `envconfig:"BUNDLEHUB_COMMISSION_RATE_L3" default:"0.01"`
}

// RateForLevel returns the configured rate, zero for unknown levels.
func (c CommissionsConfig) RateForLevel(level int) decimal.Decimal {
	switch level {
	case 1:
		return c.Level1Rate
	case 2:
		return c.Level2Rate
	case 3:
		return c.Level3Rate
	}
	return decimal.Zero
}

type SubscriptionsConfig struct {
	DurationDays int `envconfig:"BUNDLEHUB_SUBSCRIPTION_DAYS" default:"30"`
	GraceDays    int `envconfig:"BUNDLEHUB_SUBSCRIPTION_GRACE_DAYS" default:"3"`
}

type ReconConfig struct {
	Interval            time.Duration `envconfig:"BUNDLEHUB_RECON_INTERVAL" default:"2m"`
	DispatchBatchSize   int           `envconfig:"BUNDLEHUB_RECON_DISPATCH_BATCH" default:"10"`
	StatusBatchSize     int           `envconfig:"BUNDLEHUB_RECON_STATUS_BATCH" default:"20"`
	StatusCheckInterval time.Duration `envconfig:"BUNDLEHUB_RECON_STATUS_THROTTLE" default:"5m"`
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
