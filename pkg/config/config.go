package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shoppingcart/pkg/enums"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CART_APP_ENV" required:"true"`
	Port         string `envconfig:"CART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CART_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CART_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"CART_APP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CART_DB_DSN"`
	Driver string `envconfig:"CART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CART_DB_HOST"`
	Port     int    `envconfig:"CART_DB_PORT" default:"5432"`
	User     string `envconfig:"CART_DB_USER"`
	Password string `envconfig:"CART_DB_PASSWORD"`
	Name     string `envconfig:"CART_DB_NAME"`
	SSLMode  string `envconfig:"CART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CART_REDIS_URL"`
	Address      string        `envconfig:"CART_REDIS_ADDR"`
	Password     string        `envconfig:"CART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartConfig holds the defaults applied to every cart instance.
type CartConfig struct {
	// SessionStore is one of "memory" or "redis".
	SessionStore    string        `envconfig:"CART_SESSION_STORE" default:"redis"`
	SessionTTL      time.Duration `envconfig:"CART_SESSION_TTL" default:"168h"`
	DefaultCurrency string        `envconfig:"CART_DEFAULT_CURRENCY" default:"USD"`
	DefaultTaxRate  string        `envconfig:"CART_DEFAULT_TAX_RATE" default:"0"`
}

// Currency returns the parsed default currency.
func (c CartConfig) Currency() enums.Currency {
	cur, err := enums.ParseCurrency(c.DefaultCurrency)
	if err != nil {
		return enums.CurrencyUSD
	}
	return cur
}

// TaxRate parses the default tax rate percentage.
func (c CartConfig) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.DefaultTaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", EnvCartTaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be non-negative", EnvCartTaxRate)
	}
	return rate, nil
}

func (c CartConfig) validate() error {
	if _, err := enums.ParseCurrency(c.DefaultCurrency); err != nil {
		return fmt.Errorf("%s: %w", EnvCartCurrency, err)
	}
	if _, err := c.TaxRate(); err != nil {
		return err
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCartSessionStore, SessionStoreMemory, SessionStoreRedis, c.SessionStore)
	}
	return nil
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval            time.Duration `envconfig:"CART_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"CART_CRON_LOCK_TTL" default:"25h"`
	StoredCartRetention time.Duration `envconfig:"CART_STORED_CART_RETENTION" default:"720h"`
	JobTimeout          time.Duration `envconfig:"CART_CRON_JOB_TIMEOUT" default:"30m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:shoppingcart.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
