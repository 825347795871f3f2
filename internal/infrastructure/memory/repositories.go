package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var (
	_ repository.StockRepository             = (*stockRepo)(nil)
	_ repository.StockOperationLogRepository = (*stockLogRepo)(nil)
	_ repository.OrderRepository             = (*orderRepo)(nil)
	_ repository.OrderStatusLogRepository    = (*statusLogRepo)(nil)
)

type stockRepo struct {
	store *Store
	tx    *state
}

func (r *stockRepo) Get(_ context.Context, skuID int64) (*entity.SkuStock, error) {
	var out *entity.SkuStock
	r.store.read(r.tx, func(st *state) {
		if row, ok := st.stocks[skuID]; ok {
			out = &row
		}
	})
	return out, nil
}

// GetForUpdate dentro de una transacción ya hay exclusividad: equivale a Get.
func (r *stockRepo) GetForUpdate(ctx context.Context, skuID int64) (*entity.SkuStock, error) {
	return r.Get(ctx, skuID)
}

func (r *stockRepo) ApplyDelta(ctx context.Context, skuID int64, stockDelta, reservedDelta int, expectedVersion int64) (bool, error) {
	var applied bool
	err := r.store.write(ctx, r.tx, func(st *state) error {
		row, ok := st.stocks[skuID]
		if !ok || row.Version != expectedVersion {
			return nil
		}
		if r.store.consumeVersionFailure(skuID) {
			return nil
		}
		row.Stock += stockDelta
		row.ReservedStock += reservedDelta
		if row.Stock < 0 || !row.Valid() {
			return nil
		}
		row.Version++
		row.UpdatedAt = time.Now()
		st.stocks[skuID] = row
		applied = true
		return nil
	})
	return applied, err
}

func (r *stockRepo) Create(ctx context.Context, row *entity.SkuStock) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		if _, ok := st.stocks[row.SkuID]; ok {
			return fmt.Errorf("sku %d: %w", row.SkuID, domain.ErrConflict)
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = time.Now()
		}
		st.stocks[row.SkuID] = *row
		return nil
	})
}

type stockLogRepo struct {
	store *Store
	tx    *state
}

func (r *stockLogRepo) Create(ctx context.Context, entry *entity.StockOperationLog) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		st.logSeq++
		entry.ID = st.logSeq
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		st.stockLogs = append(st.stockLogs, *entry)
		return nil
	})
}

// LockOrder no hace nada: las transacciones del almacén ya son exclusivas.
func (r *stockLogRepo) LockOrder(context.Context, string) error {
	return nil
}

func (r *stockLogRepo) ListByOrderNo(ctx context.Context, orderNo string) ([]*entity.StockOperationLog, error) {
	return r.List(ctx, repository.StockLogFilter{OrderNo: orderNo})
}

func (r *stockLogRepo) ListRecentBySku(ctx context.Context, skuID int64, limit int) ([]*entity.StockOperationLog, error) {
	return r.List(ctx, repository.StockLogFilter{SkuID: skuID, Limit: limit})
}

// List por orden: ascendente por ID; en otro caso, más recientes primero.
func (r *stockLogRepo) List(_ context.Context, f repository.StockLogFilter) ([]*entity.StockOperationLog, error) {
	var out []*entity.StockOperationLog
	r.store.read(r.tx, func(st *state) {
		for i := range st.stockLogs {
			e := st.stockLogs[i]
			if f.OrderNo != "" && e.OrderNo != f.OrderNo {
				continue
			}
			if f.SkuID > 0 && e.SkuID != f.SkuID {
				continue
			}
			if f.Operation != 0 && e.Operation != f.Operation {
				continue
			}
			out = append(out, &e)
		}
	})
	if f.OrderNo == "" {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type orderRepo struct {
	store *Store
	tx    *state
}

func (r *orderRepo) Create(ctx context.Context, order *entity.Order) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		if _, ok := st.orders[order.OrderNo]; ok {
			return fmt.Errorf("orden %s: %w", order.OrderNo, domain.ErrConflict)
		}
		st.orderSeq++
		order.ID = st.orderSeq
		st.orders[order.OrderNo] = cloneOrder(*order)
		return nil
	})
}

func (r *orderRepo) GetByOrderNo(_ context.Context, orderNo string) (*entity.Order, error) {
	var out *entity.Order
	r.store.read(r.tx, func(st *state) {
		if o, ok := st.orders[orderNo]; ok {
			c := cloneOrder(o)
			out = &c
		}
	})
	return out, nil
}

func (r *orderRepo) GetByOrderNoForUpdate(ctx context.Context, orderNo string) (*entity.Order, error) {
	return r.GetByOrderNo(ctx, orderNo)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderNo string, status entity.OrderStatus, updatedAt time.Time) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		o, ok := st.orders[orderNo]
		if !ok {
			return domain.ErrNotFound
		}
		o.Status = status
		o.UpdatedAt = updatedAt
		st.orders[orderNo] = o
		return nil
	})
}

func (r *orderRepo) ListExpired(_ context.Context, status entity.OrderStatus, before time.Time, limit int) ([]string, error) {
	var expired []entity.Order
	r.store.read(r.tx, func(st *state) {
		for _, o := range st.orders {
			if o.Status == status && o.ExpireAt.Before(before) {
				expired = append(expired, o)
			}
		}
	})
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].ExpireAt.Equal(expired[j].ExpireAt) {
			return expired[i].ID < expired[j].ID
		}
		return expired[i].ExpireAt.Before(expired[j].ExpireAt)
	})
	expired = page(expired, limit, 0)
	out := make([]string, 0, len(expired))
	for _, o := range expired {
		out = append(out, o.OrderNo)
	}
	return out, nil
}

type statusLogRepo struct {
	store *Store
	tx    *state
}

func (r *statusLogRepo) Create(ctx context.Context, entry *entity.OrderStatusLog) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		st.statusSeq++
		entry.ID = st.statusSeq
		st.statusLogs = append(st.statusLogs, *entry)
		return nil
	})
}

func (r *statusLogRepo) ListByOrderNo(_ context.Context, orderNo string) ([]*entity.OrderStatusLog, error) {
	var out []*entity.OrderStatusLog
	r.store.read(r.tx, func(st *state) {
		for i := range st.statusLogs {
			if st.statusLogs[i].OrderNo == orderNo {
				e := st.statusLogs[i]
				out = append(out, &e)
			}
		}
	})
	return out, nil
}
