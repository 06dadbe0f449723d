package config

import (
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Remote.BaseURL != "https://api.example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Store.Driver)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", cfg.Remote.Timeout)
	}
	fee, err := cfg.Cart.Fee()
	if err != nil || fee.String() != "15" {
		t.Fatalf("unexpected fee %v err=%v", fee, err)
	}
	if cfg.Cart.CheckoutScope != "server_cart" {
		t.Fatalf("unexpected checkout scope %q", cfg.Cart.CheckoutScope)
	}
	if got := cfg.Connectivity.ProbeTarget(cfg.Remote); got != cfg.Remote.BaseURL {
		t.Fatalf("expected probe target to default to base url, got %q", got)
	}
}

func TestLoad_MissingRemote(t *testing.T) {
	t.Setenv(EnvRemoteURL, "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing remote url to return an error")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		EnvStoreDriver: "bolt",
		EnvCheckout:    "everything",
		EnvShippingFee: "-1",
		EnvRemoteURL:   "not a url",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setMinimalEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to fail", key, value)
			}
		})
	}
}

func TestLoad_RedisRequiresAddress(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "REDIS")
	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without address to fail")
	}
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverRedis {
		t.Fatalf("expected normalized driver, got %q", cfg.Store.Driver)
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	if !(AppConfig{Env: "DEV"}).IsDev() {
		t.Fatal("expected IsDev for DEV")
	}
	if !(AppConfig{Env: "prod"}).IsProd() {
		t.Fatal("expected IsProd for prod")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvRemoteURL, "https://api.example.com/v1/")
	t.Setenv(EnvStoreDriver, "sqlite")
	t.Setenv(EnvCheckout, "server_cart")
	t.Setenv(EnvShippingFee, "15.00")
	t.Setenv(EnvRedisURL, "")
}
