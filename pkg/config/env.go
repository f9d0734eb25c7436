package config

const EnvPrefix = "CART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite = "sqlite"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

const (
	EnvAppEnv   = "CART_APP_ENV"
	EnvPort     = "CART_APP_PORT"
	EnvLogLevel = "CART_LOG_LEVEL"

	EnvDBDSN  = "CART_DB_DSN"
	EnvDBHost = "CART_DB_HOST"
	EnvDBUser = "CART_DB_USER"
	EnvDBName = "CART_DB_NAME"

	EnvRedisURL = "CART_REDIS_URL"

	EnvCartSessionStore = "CART_SESSION_STORE"
	EnvCartSessionTTL   = "CART_SESSION_TTL"
	EnvCartCurrency     = "CART_DEFAULT_CURRENCY"
	EnvCartTaxRate      = "CART_DEFAULT_TAX_RATE"

	EnvUseSQLite = "CART_USE_SQLITE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
