package cache

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Redis es el backend distribuido.
type Redis struct {
	client *rdb.Client
	prefix string
}

func NewRedis(cfg Config) (*Redis, error) {
	client := rdb.NewClient(&rdb.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	return &Redis{client: client, prefix: cfg.Prefix}, nil
}

// Client expone el cliente crudo (lo reutiliza el rate limiter).
func (r *Redis) Client() *rdb.Client { return r.client }

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, rdb.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
