package config

// EnvPrefix is the envconfig prefix shared by every KIOSK_* variable.
const EnvPrefix = "kiosk"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "KIOSK_APP_ENV"
	EnvDBDSN  = "KIOSK_DB_DSN"
	EnvDBHost = "KIOSK_DB_HOST"
	EnvDBUser = "KIOSK_DB_USER"
	EnvDBName = "KIOSK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
