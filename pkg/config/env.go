package config

const (
	EnvPrefix = "DISPO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "DISPO_APP_ENV"
	EnvPort     = "DISPO_APP_PORT"
	EnvLogLevel = "DISPO_LOG_LEVEL"

	EnvDBDSN  = "DISPO_DB_DSN"
	EnvDBHost = "DISPO_DB_HOST"
	EnvDBUser = "DISPO_DB_USER"
	EnvDBName = "DISPO_DB_NAME"

	EnvUseSQLite = "DISPO_USE_SQLITE"

	EnvRedisURL = "DISPO_REDIS_URL"

	EnvGCPProjectID            = "DISPO_GCP_PROJECT_ID"
	EnvPubSubTransactionsTopic = "DISPO_PUBSUB_TRANSACTIONS_TOPIC"
	EnvPubSubTransactionsSub   = "DISPO_PUBSUB_TRANSACTIONS_SUBSCRIPTION"
	EnvPubSubPickingTopic      = "DISPO_PUBSUB_PICKING_TOPIC"
	EnvTraceMaxDepth           = "DISPO_TRACE_MAX_DEPTH"
	EnvTraceMaxRecords         = "DISPO_TRACE_MAX_RECORDS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
