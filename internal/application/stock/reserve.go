package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/domain/stockledger"
)

// ReserveItem par SKU/cantidad solicitado por una orden.
type ReserveItem struct {
	SkuID    int64
	Quantity int
}

// ItemFailure motivo por el que un SKU del lote no pudo reservarse.
type ItemFailure struct {
	SkuID     int64
	Quantity  int
	Available int
	Err       error
}

// ReservationResult resultado de Reserve. Con error, Reserved queda vacío y
// RolledBack lista lo que se compensó antes de retornar.
type ReservationResult struct {
	OrderNo    string
	Reserved   []ReserveItem
	RolledBack []ReserveItem
	Failed     []ItemFailure
}

// Reserve retiene el lote completo para orderNo o no retiene nada.
// Cada SKU se reserva en su propia transacción corta (bloqueo de fila + update condicionado
// por versión); si algún SKU falla, los ya reservados se compensan antes de retornar.
// No reintenta internamente: ante ErrVersionConflict el llamador reenvía el lote.
func (c *Coordinator) Reserve(ctx context.Context, items []ReserveItem, orderNo string) (*ReservationResult, error) {
	start := c.now()
	res, err := c.reserve(ctx, items, orderNo)
	c.metrics.ObserveStockOperation("reserve", outcome(err), time.Since(start))
	return res, err
}

func (c *Coordinator) reserve(ctx context.Context, items []ReserveItem, orderNo string) (*ReservationResult, error) {
	if orderNo == "" {
		return nil, domain.ErrInvalidInput
	}
	batch, err := normalize(items)
	if err != nil {
		return nil, err
	}

	result := &ReservationResult{OrderNo: orderNo}
	for _, item := range batch {
		err := c.reserveItem(ctx, item, orderNo, result.Reserved)
		if err == nil {
			result.Reserved = append(result.Reserved, item)
			continue
		}
		if errors.Is(err, domain.ErrDuplicateReservation) && len(result.Reserved) == 0 {
			return nil, err
		}
		failure := ItemFailure{SkuID: item.SkuID, Quantity: item.Quantity, Err: err}
		var se *domain.StockError
		if errors.As(err, &se) {
			failure.Available = se.Available
		}
		result.Failed = append(result.Failed, failure)
		c.log.Warn().Err(err).Str("order_no", orderNo).Int64("sku_id", item.SkuID).
			Int("quantity", item.Quantity).Msg("reserva de SKU fallida")
		// Un fallo de almacenamiento no se arregla intentando los SKUs restantes.
		if !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrVersionConflict) {
			break
		}
	}

	if len(result.Failed) == 0 {
		c.log.Info().Str("order_no", orderNo).Int("items", len(result.Reserved)).Msg("stock reservado")
		return result, nil
	}

	c.log.Warn().Str("order_no", orderNo).Int("reserved", len(result.Reserved)).
		Int("failed", len(result.Failed)).Msg("lote incompleto, compensando reservas")
	if err := c.compensate(ctx, result.Reserved, orderNo); err != nil {
		return result, err
	}
	result.RolledBack, result.Reserved = result.Reserved, nil
	return result, batchError(result.Failed)
}

// normalize valida y agrupa las líneas por SKU, en orden ascendente de SKU
// para que dos lotes concurrentes tomen las filas en el mismo orden.
func normalize(items []ReserveItem) ([]ReserveItem, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		if it.SkuID <= 0 || it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		qty[it.SkuID] += it.Quantity
	}
	out := make([]ReserveItem, 0, len(qty))
	for sku, q := range qty {
		out = append(out, ReserveItem{SkuID: sku, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkuID < out[j].SkuID })
	return out, nil
}

// reserveItem reserva un SKU en una transacción propia. Con la orden bloqueada comprueba
// que lo vigente en el log sea exactamente lo que este lote ya reservó (mine): cualquier otra
// reserva o confirmación es de otra llamada con el mismo orderNo.
func (c *Coordinator) reserveItem(ctx context.Context, item ReserveItem, orderNo string, mine []ReserveItem) error {
	key := LockKey(item.SkuID)
	if c.acquire(ctx, key, orderNo) {
		defer c.release(ctx, key, orderNo)
	}

	txCtx, cancel := context.WithTimeout(ctx, c.opts.TxTimeout)
	defer cancel()
	return c.txRunner.Run(txCtx, func(repos repository.Repositories) error {
		positions, err := c.replay(txCtx, repos, orderNo)
		if err != nil {
			return err
		}
		if !ownsOutstanding(positions, mine) {
			return fmt.Errorf("orden %s: %w", orderNo, domain.ErrDuplicateReservation)
		}
		cur, err := repos.Stock.GetForUpdate(txCtx, item.SkuID)
		if err != nil {
			return err
		}
		if cur == nil {
			return &domain.StockError{SkuID: item.SkuID, Required: item.Quantity, Err: domain.ErrInsufficientStock}
		}
		if cur.Available() < item.Quantity {
			return &domain.StockError{SkuID: item.SkuID, Required: item.Quantity, Available: cur.Available(), Err: domain.ErrInsufficientStock}
		}
		ok, err := repos.Stock.ApplyDelta(txCtx, item.SkuID, 0, item.Quantity, cur.Version)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.StockError{SkuID: item.SkuID, Required: item.Quantity, Available: cur.Available(), Err: domain.ErrVersionConflict}
		}
		return repos.StockLog.Create(txCtx, &entity.StockOperationLog{
			SkuID:          item.SkuID,
			Operation:      entity.StockOpReserve,
			Quantity:       item.Quantity,
			BeforeStock:    cur.Stock,
			AfterStock:     cur.Stock,
			BeforeReserved: cur.ReservedStock,
			AfterReserved:  cur.ReservedStock + item.Quantity,
			OrderNo:        orderNo,
			CreatedAt:      c.now(),
		})
	})
}

// ownsOutstanding true si la orden no tiene confirmaciones y lo vigente por SKU coincide con mine.
func ownsOutstanding(positions []stockledger.Position, mine []ReserveItem) bool {
	if stockledger.AnyConfirmed(positions) {
		return false
	}
	want := make(map[int64]int, len(mine))
	for _, it := range mine {
		want[it.SkuID] += it.Quantity
	}
	pending := stockledger.Outstanding(positions)
	if len(pending) != len(want) {
		return false
	}
	for _, p := range pending {
		if want[p.SkuID] != p.Outstanding() {
			return false
		}
	}
	return true
}

// Rollback revierte exactamente lo que res.Reserved retuvo (entradas Rollback), sin tocar
// otras reservas del mismo orderNo. Para el llamador que reservó y no pudo completar su paso siguiente.
func (c *Coordinator) Rollback(ctx context.Context, res *ReservationResult) error {
	if res == nil || len(res.Reserved) == 0 {
		return nil
	}
	start := c.now()
	err := c.compensate(ctx, res.Reserved, res.OrderNo)
	c.metrics.ObserveStockOperation("rollback", outcome(err), time.Since(start))
	if err != nil {
		return err
	}
	res.RolledBack, res.Reserved = append(res.RolledBack, res.Reserved...), nil
	return nil
}

// compensate deshace, SKU por SKU, las reservas ya aplicadas de un lote fallido.
// Corre aunque el contexto del llamador se haya cancelado: no puede quedar reserva parcial.
func (c *Coordinator) compensate(ctx context.Context, reserved []ReserveItem, orderNo string) error {
	base := context.WithoutCancel(ctx)
	var errs []error
	for _, item := range reserved {
		txCtx, cancel := context.WithTimeout(base, c.opts.TxTimeout)
		err := c.txRunner.Run(txCtx, func(repos repository.Repositories) error {
			if err := repos.StockLog.LockOrder(txCtx, orderNo); err != nil {
				return err
			}
			return c.applyLogged(txCtx, repos, item.SkuID, 0, -item.Quantity, entity.StockOpRollback, item.Quantity, orderNo, nil)
		})
		cancel()
		if err != nil {
			c.log.Error().Err(err).Str("order_no", orderNo).Int64("sku_id", item.SkuID).
				Int("quantity", item.Quantity).Msg("rollback de reserva fallido")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("compensar reservas de %s: %w: %w", orderNo, domain.ErrStockInconsistency, errors.Join(errs...))
	}
	return nil
}

// batchError reduce los fallos por SKU a un único error de lote.
// Prioridad: fallo de almacenamiento, luego conflicto de versión, luego stock insuficiente.
func batchError(failed []ItemFailure) error {
	var conflict, insufficient error
	for _, f := range failed {
		switch {
		case errors.Is(f.Err, domain.ErrVersionConflict):
			if conflict == nil {
				conflict = f.Err
			}
		case errors.Is(f.Err, domain.ErrInsufficientStock):
			if insufficient == nil {
				insufficient = f.Err
			}
		default:
			return f.Err
		}
	}
	if conflict != nil {
		return conflict
	}
	return insufficient
}

// acquire intenta el bloqueo distribuido. No obtenerlo no es un error: la lectura
// posterior bajo bloqueo de fila serializa igual las reservas del mismo SKU.
func (c *Coordinator) acquire(ctx context.Context, key, owner string) bool {
	if c.locks == nil {
		return false
	}
	lctx, cancel := context.WithTimeout(ctx, c.opts.LockWaitTimeout)
	defer cancel()
	ok, err := c.locks.TryAcquire(lctx, key, owner, c.opts.LockTTL)
	switch {
	case err != nil:
		c.metrics.ObserveLockAcquire("unavailable")
		c.log.Warn().Err(err).Str("lock_key", key).Msg("proveedor de bloqueo no disponible, se usa bloqueo de fila")
		return false
	case !ok:
		c.metrics.ObserveLockAcquire("busy")
		c.log.Debug().Str("lock_key", key).Msg("bloqueo ocupado, se usa bloqueo de fila")
		return false
	}
	c.metrics.ObserveLockAcquire("acquired")
	return true
}

func (c *Coordinator) release(ctx context.Context, key, owner string) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LockWaitTimeout)
	defer cancel()
	if err := c.locks.Release(lctx, key, owner); err != nil {
		c.log.Warn().Err(err).Str("lock_key", key).Msg("liberar bloqueo distribuido")
	}
}
