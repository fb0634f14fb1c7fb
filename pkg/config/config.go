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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
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
	Env          string `envconfig:"GROUPCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GROUPCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GROUPCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROUPCART_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"GROUPCART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GROUPCART_DB_DSN"`
	Driver string `envconfig:"GROUPCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GROUPCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GROUPCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GROUPCART_DB_USER"`
	LegacyPassword string `envconfig:"GROUPCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GROUPCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GROUPCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GROUPCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GROUPCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GROUPCART_REDIS_URL"`
	Address      string        `envconfig:"GROUPCART_REDIS_ADDR"`
	Password     string        `envconfig:"GROUPCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROUPCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROUPCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROUPCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROUPCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROUPCART_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"GROUPCART_REDIS_WRITE_TIMEOUT" default:"2s"`
}

// JWTConfig describes how bearer tokens minted by the auth service are verified.
// The cart service never issues tokens itself.
type JWTConfig struct {
	Secret string `envconfig:"GROUPCART_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"GROUPCART_JWT_ISSUER" required:"true"`
}

type CartConfig struct {
	CacheTTL        time.Duration `envconfig:"GROUPCART_CART_CACHE_TTL" default:"168h"`
	GuestCookieName string        `envconfig:"GROUPCART_CART_GUEST_COOKIE" default:"gc_cart_session"`
	GuestCookieTTL  time.Duration `envconfig:"GROUPCART_CART_GUEST_COOKIE_TTL" default:"168h"`
	SecureCookies   bool          `envconfig:"GROUPCART_CART_SECURE_COOKIES" default:"true"`

	// Guest carts untouched for GuestRetention are purged by the janitor.
	GuestRetention   time.Duration `envconfig:"GROUPCART_CART_GUEST_RETENTION" default:"720h"`
	JanitorInterval  time.Duration `envconfig:"GROUPCART_CART_JANITOR_INTERVAL" default:"1h"`
	JanitorBatchSize int           `envconfig:"GROUPCART_CART_JANITOR_BATCH_SIZE" default:"500"`
}

func (c CartConfig) validate() error {
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCartCacheTTL)
	}
	if strings.TrimSpace(c.GuestCookieName) == "" {
		return fmt.Errorf("%s must not be empty", EnvCartGuestCookie)
	}
	if c.GuestRetention < c.CacheTTL {
		return fmt.Errorf("%s must not be shorter than %s", EnvCartGuestRetention, EnvCartCacheTTL)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GROUPCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GROUPCART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
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
