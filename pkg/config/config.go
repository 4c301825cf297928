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
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Views        ViewsConfig
	Metrics      MetricsConfig
	CORS         CORSConfig
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
	Env             string        `envconfig:"INVENTARIO_APP_ENV" default:"dev"`
	Port            string        `envconfig:"INVENTARIO_APP_PORT" default:"3000"`
	LogLevel        string        `envconfig:"INVENTARIO_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"INVENTARIO_LOG_WARN_STACK" default:"false"`
	RequestTimeout  time.Duration `envconfig:"INVENTARIO_REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"INVENTARIO_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"INVENTARIO_DB_DSN"`
	Driver string `envconfig:"INVENTARIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INVENTARIO_DB_HOST"`
	LegacyPort     int    `envconfig:"INVENTARIO_DB_PORT"`
	LegacyUser     string `envconfig:"INVENTARIO_DB_USER"`
	LegacyPassword string `envconfig:"INVENTARIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"INVENTARIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"INVENTARIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"INVENTARIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"INVENTARIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"INVENTARIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"INVENTARIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"INVENTARIO_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// NormalizedDriver returns the configured driver lowercased, mapping aliases.
func (db DBConfig) NormalizedDriver() string {
	switch d := strings.ToLower(strings.TrimSpace(db.Driver)); d {
	case "", "postgresql", "pg":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	default:
		return d
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"INVENTARIO_REDIS_URL"`
	Address      string        `envconfig:"INVENTARIO_REDIS_ADDR"`
	Password     string        `envconfig:"INVENTARIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"INVENTARIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INVENTARIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INVENTARIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INVENTARIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INVENTARIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INVENTARIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"INVENTARIO_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig caps form submissions per client IP. Requires redis.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"INVENTARIO_RATE_LIMIT_WINDOW" default:"1m"`
	Max    int           `envconfig:"INVENTARIO_RATE_LIMIT_MAX" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"INVENTARIO_AUTO_MIGRATE" default:"false"`
}

type ViewsConfig struct {
	StaticDir string `envconfig:"INVENTARIO_STATIC_DIR"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"INVENTARIO_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"INVENTARIO_METRICS_PATH" default:"/metrics"`
}

// CORSConfig lists origins allowed to read /health and /metrics cross-site.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"INVENTARIO_CORS_ALLOWED_ORIGINS"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	driver := db.NormalizedDriver()
	if driver == DriverSQLite {
		if db.LegacyName == "" {
			return fmt.Errorf("either %s or %s are required for sqlite", EnvDBDSN, EnvDBName)
		}
		db.DSN = db.LegacyName
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

	switch driver {
	case DriverMySQL:
		db.DSN = db.mysqlDSN()
	case DriverPostgres:
		db.DSN = db.postgresDSN()
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	return nil
}

func (db *DBConfig) postgresDSN() string {
	port := db.LegacyPort
	if port == 0 {
		port = 5432
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, port),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// mysqlDSN follows the go-sql-driver format; parseTime is needed to scan ventas.fecha.
func (db *DBConfig) mysqlDSN() string {
	port := db.LegacyPort
	if port == 0 {
		port = 3306
	}
	creds := db.LegacyUser
	if db.LegacyPassword != "" {
		creds = db.LegacyUser + ":" + db.LegacyPassword
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC", creds, db.LegacyHost, port, db.LegacyName)
}
