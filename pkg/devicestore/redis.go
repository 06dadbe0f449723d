package devicestore

import (
	"context"

	"github.com/angelmondragon/packfinderz-cart/pkg/redis"
)

// Redis stores slots under pf:device:<key> without expiry.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	return r.client.Get(ctx, r.client.DeviceKey(key))
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.client.DeviceKey(key), value, 0)
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.DeviceKey(key))
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx) }

func (r *Redis) Close() error { return r.client.Close() }
