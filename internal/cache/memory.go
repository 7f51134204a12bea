package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory es el backend in-process, apoyado en go-cache (janitor incluido).
type Memory struct {
	c      *gocache.Cache
	prefix string
}

func NewMemory(prefix string) *Memory {
	return &Memory{
		c:      gocache.New(gocache.NoExpiration, 5*time.Minute),
		prefix: prefix,
	}
}

func (m *Memory) key(k string) string { return m.prefix + k }

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(m.key(key), value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
