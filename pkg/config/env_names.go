package config

const (
	EnvPrefix = "tillcore"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvDBDSN  = "TILLCORE_DB_DSN"
	EnvDBHost = "TILLCORE_DB_HOST"
	EnvDBUser = "TILLCORE_DB_USER"
	EnvDBName = "TILLCORE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
