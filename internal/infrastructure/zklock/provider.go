// Package zklock implementa stock.LockProvider con nodos efímeros de ZooKeeper.
// El nodo desaparece al cerrarse la sesión del titular; el TTL pedido no se aplica
// más allá del timeout de sesión.
package zklock

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/jhoicas/stock-engine/internal/application/stock"
)

var _ stock.LockProvider = (*Provider)(nil)

// Conn subconjunto de *zk.Conn que usa el proveedor.
type Conn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Delete(path string, version int32) error
}

// Provider bloqueo distribuido sobre ZooKeeper.
type Provider struct {
	conn     Conn
	basePath string
}

// New construye el proveedor. Los nodos se crean bajo basePath.
func New(conn Conn, basePath string) *Provider {
	return &Provider{conn: conn, basePath: "/" + strings.Trim(basePath, "/")}
}

// Connect abre la sesión con el ensamble.
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("zookeeper connect: %w", err)
	}
	return conn, nil
}

func (p *Provider) nodePath(key string) string {
	return path.Join(p.basePath, key)
}

// TryAcquire crea el nodo efímero de key con owner como dato. Si ya existe, la clave está tomada.
func (p *Provider) TryAcquire(ctx context.Context, key, owner string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := p.conn.Create(p.nodePath(key), []byte(owner), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if errors.Is(err, zk.ErrNoNode) {
		if err := p.ensureBase(); err != nil {
			return false, err
		}
		_, err = p.conn.Create(p.nodePath(key), []byte(owner), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, zk.ErrNodeExists):
		return false, nil
	}
	return false, fmt.Errorf("zookeeper create %s: %w", key, err)
}

// Release borra el nodo solo si su dato es owner.
func (p *Provider) Release(ctx context.Context, key, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, stat, err := p.conn.Get(p.nodePath(key))
	if errors.Is(err, zk.ErrNoNode) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("zookeeper get %s: %w", key, err)
	}
	if string(data) != owner {
		return nil
	}
	if err := p.conn.Delete(p.nodePath(key), stat.Version); err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("zookeeper delete %s: %w", key, err)
	}
	return nil
}

// ensureBase crea los nodos persistentes de basePath que falten.
func (p *Provider) ensureBase() error {
	current := ""
	for _, part := range strings.Split(strings.Trim(p.basePath, "/"), "/") {
		current += "/" + part
		_, err := p.conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("zookeeper create %s: %w", current, err)
		}
	}
	return nil
}
