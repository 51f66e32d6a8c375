package config

const (
	EnvPrefix = "GOLFLOCKER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GOLFLOCKER_DB_DSN"
	EnvDBHost = "GOLFLOCKER_DB_HOST"
	EnvDBUser = "GOLFLOCKER_DB_USER"
	EnvDBName = "GOLFLOCKER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
