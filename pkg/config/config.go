package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Remote       RemoteConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Connectivity ConnectivityConfig
	Breaker      BreakerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKFINDERZ_APP_ENV" default:"dev"`
	Addr         string `envconfig:"PACKFINDERZ_APP_ADDR" default:"127.0.0.1:7420"`
	LogLevel     string `envconfig:"PACKFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKFINDERZ_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the UI shell origins allowed to call the local API.
	CORSOrigins []string `envconfig:"PACKFINDERZ_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RemoteConfig struct {
	BaseURL   string        `envconfig:"PACKFINDERZ_REMOTE_BASE_URL" required:"true"`
	AuthToken string        `envconfig:"PACKFINDERZ_REMOTE_AUTH_TOKEN"`
	Timeout   time.Duration `envconfig:"PACKFINDERZ_REMOTE_TIMEOUT" default:"10s"`
}

type StoreConfig struct {
	Driver      string `envconfig:"PACKFINDERZ_STORE_DRIVER" default:"sqlite"`
	AutoMigrate bool   `envconfig:"PACKFINDERZ_STORE_AUTO_MIGRATE" default:"true"`
}

type DBConfig struct {
	DSN             string        `envconfig:"PACKFINDERZ_DB_DSN" default:"file:packfinderz-cart.db?_busy_timeout=5000"`
	MaxOpenConns    int           `envconfig:"PACKFINDERZ_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"PACKFINDERZ_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKFINDERZ_REDIS_URL"`
	Address      string        `envconfig:"PACKFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"PACKFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKFINDERZ_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PACKFINDERZ_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type CartConfig struct {
	SnapshotKey   string `envconfig:"PACKFINDERZ_CART_SNAPSHOT_KEY" default:"cart:snapshot"`
	ShippingFee   string `envconfig:"PACKFINDERZ_CART_SHIPPING_FEE" default:"15.00"`
	CheckoutScope string `envconfig:"PACKFINDERZ_CART_CHECKOUT_SCOPE" default:"server_cart"`
	AsyncMirror   bool   `envconfig:"PACKFINDERZ_CART_ASYNC_MIRROR" default:"false"`
	NoticeBuffer  int    `envconfig:"PACKFINDERZ_CART_NOTICE_BUFFER" default:"32"`
}

// Fee parses the configured flat shipping fee.
func (c CartConfig) Fee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFee))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvShippingFee, c.ShippingFee, err)
	}
	if !fee.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be greater than zero", EnvShippingFee)
	}
	return fee, nil
}

type ConnectivityConfig struct {
	ProbeURL     string        `envconfig:"PACKFINDERZ_CONNECTIVITY_PROBE_URL"`
	Interval     time.Duration `envconfig:"PACKFINDERZ_CONNECTIVITY_INTERVAL" default:"5s"`
	ProbeTimeout time.Duration `envconfig:"PACKFINDERZ_CONNECTIVITY_PROBE_TIMEOUT" default:"2s"`
	ForceOffline bool          `envconfig:"PACKFINDERZ_CONNECTIVITY_FORCE_OFFLINE" default:"false"`
}

// ProbeTarget falls back to the remote base URL when no probe URL is configured.
func (c ConnectivityConfig) ProbeTarget(remote RemoteConfig) string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return remote.BaseURL
}

type BreakerConfig struct {
	MaxRequests      uint32        `envconfig:"PACKFINDERZ_BREAKER_MAX_REQUESTS" default:"1"`
	Interval         time.Duration `envconfig:"PACKFINDERZ_BREAKER_INTERVAL" default:"60s"`
	Timeout          time.Duration `envconfig:"PACKFINDERZ_BREAKER_TIMEOUT" default:"30s"`
	ConsecutiveFails uint32        `envconfig:"PACKFINDERZ_BREAKER_CONSECUTIVE_FAILURES" default:"5"`
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvRemoteURL, c.Remote.BaseURL)
	}
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")

	switch strings.ToLower(c.Store.Driver) {
	case StoreDriverMemory, StoreDriverSQLite, StoreDriverPostgres:
	case StoreDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or PACKFINDERZ_REDIS_ADDR is required for the redis store", EnvRedisURL)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStoreDriver, c.Store.Driver)
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)

	switch c.Cart.CheckoutScope {
	case "server_cart", "selected":
	default:
		return fmt.Errorf("unsupported %s %q", EnvCheckout, c.Cart.CheckoutScope)
	}
	if _, err := c.Cart.Fee(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Cart.SnapshotKey) == "" {
		return fmt.Errorf("%s must not be empty", EnvSnapshotKey)
	}
	return nil
}
