package zklock

import (
	"context"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu    sync.Mutex
	nodes map[string][]byte
	vers  map[string]int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{nodes: map[string][]byte{}, vers: map[string]int32{}}
}

func (f *fakeConn) Create(p string, data []byte, _ int32, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[p]; ok {
		return "", zk.ErrNodeExists
	}
	if parent := path.Dir(p); parent != "/" {
		if _, ok := f.nodes[parent]; !ok {
			return "", zk.ErrNoNode
		}
	}
	f.nodes[p] = data
	return p, nil
}

func (f *fakeConn) Get(p string) ([]byte, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return data, &zk.Stat{Version: f.vers[p]}, nil
}

func (f *fakeConn) Delete(p string, version int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[p]; !ok {
		return zk.ErrNoNode
	}
	if version != f.vers[p] {
		return zk.ErrBadVersion
	}
	delete(f.nodes, p)
	return nil
}

func TestProvider_CreaBaseYAdquiere(t *testing.T) {
	conn := newFakeConn()
	p := New(conn, "/stock-engine/locks/")
	ctx := context.Background()

	ok, err := p.TryAcquire(ctx, "sku:7", "ORD-1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("ORD-1"), conn.nodes["/stock-engine/locks/sku:7"])
	assert.Contains(t, conn.nodes, "/stock-engine")

	ok, err = p.TryAcquire(ctx, "sku:7", "ORD-2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_ReleaseSoloTitular(t *testing.T) {
	conn := newFakeConn()
	p := New(conn, "locks")
	ctx := context.Background()

	ok, err := p.TryAcquire(ctx, "sku:1", "ORD-1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Release(ctx, "sku:1", "ORD-2"))
	assert.Contains(t, conn.nodes, "/locks/sku:1")

	require.NoError(t, p.Release(ctx, "sku:1", "ORD-1"))
	assert.NotContains(t, conn.nodes, "/locks/sku:1")

	// Liberar una clave inexistente no es error.
	require.NoError(t, p.Release(ctx, "sku:1", "ORD-1"))
}

func TestProvider_ContextoCancelado(t *testing.T) {
	p := New(newFakeConn(), "locks")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.TryAcquire(ctx, "sku:1", "ORD-1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
