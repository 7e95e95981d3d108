package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "campusmarket:"

// Debouncer admits one call per key and window across every instance that
// shares the Redis server. It relies on SET NX PX.
type Debouncer struct {
	client    goredis.UniversalClient
	keyPrefix string
}

func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewDebouncer(client goredis.UniversalClient, keyPrefix string) *Debouncer {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Debouncer{client: client, keyPrefix: keyPrefix}
}

// Allow reports true for the first call in each window.
func (d *Debouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, d.keyPrefix+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("redis debounce: %w", err)
	}
	return ok, nil
}
