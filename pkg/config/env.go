package config

const (
	EnvPrefix = "PACKFINDERZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "PACKFINDERZ_APP_ENV"
	EnvAppAddr      = "PACKFINDERZ_APP_ADDR"
	EnvLogLevel     = "PACKFINDERZ_LOG_LEVEL"
	EnvRemoteURL    = "PACKFINDERZ_REMOTE_BASE_URL"
	EnvRemoteToken  = "PACKFINDERZ_REMOTE_AUTH_TOKEN"
	EnvStoreDriver  = "PACKFINDERZ_STORE_DRIVER"
	EnvDBDSN        = "PACKFINDERZ_DB_DSN"
	EnvRedisURL     = "PACKFINDERZ_REDIS_URL"
	EnvShippingFee  = "PACKFINDERZ_CART_SHIPPING_FEE"
	EnvCheckout     = "PACKFINDERZ_CART_CHECKOUT_SCOPE"
	EnvSnapshotKey  = "PACKFINDERZ_CART_SNAPSHOT_KEY"
	EnvProbeURL     = "PACKFINDERZ_CONNECTIVITY_PROBE_URL"
	EnvProbeEvery   = "PACKFINDERZ_CONNECTIVITY_INTERVAL"
	EnvForceOffline = "PACKFINDERZ_CONNECTIVITY_FORCE_OFFLINE"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)
