// Package cache provee una abstracción chica de cache con dos backends:
// memory (in-process, dev/tests) y redis (distribuido).
//
// Se usa para estado efímero: códigos OTP y challenges de autorización.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. ttl 0 = sin expiración.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key (no falla si no existe).
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config para construir un cliente.
type Config struct {
	Kind   string // "memory" | "redis"
	Addr   string // redis
	DB     int    // redis
	Prefix string // prefijo para todas las keys
}

// New crea un cliente según la configuración. Kind desconocido cae a memory.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
