// Package devicestore provides the persistent string-keyed slot storage the cart engine
// keeps its offline snapshot in.
package devicestore

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	"github.com/angelmondragon/packfinderz-cart/pkg/db"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
	"github.com/angelmondragon/packfinderz-cart/pkg/migrate"
	"github.com/angelmondragon/packfinderz-cart/pkg/redis"
)

// Store is the device key-value contract. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend is a Store that owns resources and can report health.
type Backend interface {
	Store
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return NewMemory(), nil
	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		client, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.AutoRun(ctx, cfg.Store, logg, client); err != nil {
			_ = client.Close()
			return nil, err
		}
		return NewSQL(client), nil
	case config.StoreDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return NewRedis(client), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
