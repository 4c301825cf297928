package config

const (
	EnvPrefix = "INVENTARIO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	EnvAppEnv     = "INVENTARIO_APP_ENV"
	EnvPort       = "INVENTARIO_APP_PORT"
	EnvLogLevel   = "INVENTARIO_LOG_LEVEL"
	EnvDBDSN      = "INVENTARIO_DB_DSN"
	EnvDBDriver   = "INVENTARIO_DB_DRIVER"
	EnvDBHost     = "INVENTARIO_DB_HOST"
	EnvDBPort     = "INVENTARIO_DB_PORT"
	EnvDBUser     = "INVENTARIO_DB_USER"
	EnvDBPassword = "INVENTARIO_DB_PASSWORD"
	EnvDBName     = "INVENTARIO_DB_NAME"
	EnvRedisURL   = "INVENTARIO_REDIS_URL"
	EnvStaticDir  = "INVENTARIO_STATIC_DIR"

	// EnvListenPort is the platform-provided port; it wins over EnvPort.
	EnvListenPort = "PORT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
