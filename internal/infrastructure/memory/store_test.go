package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

func TestRun_CommitYRollback(t *testing.T) {
	s := NewStore()
	s.PutStock(entity.SkuStock{SkuID: 1, Stock: 10})
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Run(ctx, func(repos repository.Repositories) error {
		ok, err := repos.Stock.ApplyDelta(ctx, 1, 0, 4, 0)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, repos.StockLog.Create(ctx, &entity.StockOperationLog{SkuID: 1, Operation: entity.StockOpReserve, Quantity: 4, OrderNo: "A"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	row, err := s.Repositories().Stock.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, row.ReservedStock, "rollback descarta la escritura")
	logs, err := s.Repositories().StockLog.ListByOrderNo(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, logs)

	require.NoError(t, s.Run(ctx, func(repos repository.Repositories) error {
		_, err := repos.Stock.ApplyDelta(ctx, 1, 0, 4, 0)
		return err
	}))
	row, _ = s.Repositories().Stock.Get(ctx, 1)
	assert.Equal(t, 4, row.ReservedStock)
	assert.Equal(t, int64(1), row.Version)
}

func TestApplyDelta_Guardas(t *testing.T) {
	s := NewStore()
	s.PutStock(entity.SkuStock{SkuID: 1, Stock: 5, ReservedStock: 2, Version: 3})
	repo := s.Repositories().Stock
	ctx := context.Background()

	tests := []struct {
		name            string
		stock, reserved int
		version         int64
	}{
		{"versión distinta", 0, 1, 2},
		{"reservado supera stock", 0, 4, 3},
		{"reservado negativo", 0, -3, 3},
		{"stock negativo", -6, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := repo.ApplyDelta(ctx, 1, tt.stock, tt.reserved, tt.version)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	ok, err := repo.ApplyDelta(ctx, 99, 0, 1, 0)
	require.NoError(t, err)
	assert.False(t, ok, "SKU inexistente")

	s.FailNextVersionCheck(1)
	ok, _ = repo.ApplyDelta(ctx, 1, 0, 1, 3)
	assert.False(t, ok, "fallo de versión inyectado")
	ok, _ = repo.ApplyDelta(ctx, 1, 0, 1, 3)
	assert.True(t, ok, "el fallo inyectado se consume una sola vez")
}

func TestRun_ContextoVencidoEsperandoTurno(t *testing.T) {
	s := NewStore()
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(repository.Repositories) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(repository.Repositories) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStorageTimeout)
}

func TestStockLogList_OrdenYPaginacion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().StockLog
	for i, op := range []entity.StockOperation{entity.StockOpReserve, entity.StockOpConfirm, entity.StockOpReserve} {
		require.NoError(t, repo.Create(ctx, &entity.StockOperationLog{SkuID: 1, Operation: op, Quantity: i + 1, OrderNo: "A"}))
	}
	require.NoError(t, repo.Create(ctx, &entity.StockOperationLog{SkuID: 2, Operation: entity.StockOpReserve, Quantity: 9, OrderNo: "B"}))

	byOrder, err := repo.ListByOrderNo(ctx, "A")
	require.NoError(t, err)
	require.Len(t, byOrder, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{byOrder[0].ID, byOrder[1].ID, byOrder[2].ID})

	recent, err := repo.ListRecentBySku(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ID)

	reserves, err := repo.List(ctx, repository.StockLogFilter{SkuID: 1, Operation: entity.StockOpReserve, Offset: 1})
	require.NoError(t, err)
	require.Len(t, reserves, 1)
	assert.Equal(t, int64(1), reserves[0].ID)

	// Las entradas devueltas son copias.
	byOrder[0].Quantity = 100
	again, _ := repo.ListByOrderNo(ctx, "A")
	assert.Equal(t, 1, again[0].Quantity)
}

func TestOrders_CrearActualizarYVencidas(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repositories()
	now := time.Now()

	mk := func(no string, expire time.Time) {
		require.NoError(t, repos.Orders.Create(ctx, &entity.Order{
			OrderNo: no, UserID: 1, Status: entity.OrderPendingPayment, ExpireAt: expire,
			Items: []entity.OrderItem{{SkuID: 1, Quantity: 1}},
		}))
	}
	mk("B", now.Add(-time.Minute))
	mk("A", now.Add(-time.Hour))
	mk("C", now.Add(time.Hour))

	err := repos.Orders.Create(ctx, &entity.Order{OrderNo: "A"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	expired, err := repos.Orders.ListExpired(ctx, entity.OrderPendingPayment, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, expired)

	require.NoError(t, repos.Orders.UpdateStatus(ctx, "A", entity.OrderCancelled, now))
	expired, _ = repos.Orders.ListExpired(ctx, entity.OrderPendingPayment, now, 10)
	assert.Equal(t, []string{"B"}, expired)

	assert.ErrorIs(t, repos.Orders.UpdateStatus(ctx, "X", entity.OrderPaid, now), domain.ErrNotFound)

	o, err := repos.Orders.GetByOrderNo(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, o.Status)
	o.Items[0].Quantity = 50
	o2, _ := repos.Orders.GetByOrderNo(ctx, "A")
	assert.Equal(t, 1, o2.Items[0].Quantity, "las líneas devueltas son copias")

	missing, err := repos.Orders.GetByOrderNo(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
