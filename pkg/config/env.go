package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "GROUPCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "GROUPCART_APP_ENV"
	EnvPort   = "GROUPCART_APP_PORT"

	EnvDBDSN  = "GROUPCART_DB_DSN"
	EnvDBHost = "GROUPCART_DB_HOST"
	EnvDBUser = "GROUPCART_DB_USER"
	EnvDBName = "GROUPCART_DB_NAME"

	EnvRedisURL  = "GROUPCART_REDIS_URL"
	EnvRedisAddr = "GROUPCART_REDIS_ADDR"

	EnvJWTSecret = "GROUPCART_JWT_SECRET"
	EnvJWTIssuer = "GROUPCART_JWT_ISSUER"

	EnvCartCacheTTL    = "GROUPCART_CART_CACHE_TTL"
	EnvCartGuestCookie = "GROUPCART_CART_GUEST_COOKIE"

	EnvCartGuestRetention = "GROUPCART_CART_GUEST_RETENTION"

	EnvUseSQLite = "GROUPCART_USE_SQLITE"
)

const defaultSQLiteDSN = "file:groupcart.db?cache=shared&_foreign_keys=on"

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
