// Package redislock implementa stock.LockProvider sobre Redis: SET NX PX para tomar
// la clave y un script Lua de comparar-y-borrar para liberarla solo si el titular coincide.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-engine/internal/application/stock"
)

var _ stock.LockProvider = (*Provider)(nil)

const releaseScript = `
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
end
return 0`

// Client subconjunto de *redis.Client que usa el proveedor.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Provider bloqueo distribuido con TTL en Redis.
type Provider struct {
	client Client
	prefix string
}

// New construye el proveedor. prefix se antepone a cada clave ("lock:" si está vacío).
func New(client Client, prefix string) *Provider {
	if prefix == "" {
		prefix = "lock:"
	}
	return &Provider{client: client, prefix: prefix}
}

// TryAcquire toma la clave si está libre. No espera al titular actual.
func (p *Provider) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := p.client.SetNX(ctx, p.prefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release borra la clave solo si owner sigue siendo el titular (el TTL pudo haber expirado).
func (p *Provider) Release(ctx context.Context, key, owner string) error {
	if err := p.client.Eval(ctx, releaseScript, []string{p.prefix + key}, owner).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}
