package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/domain/stockledger"
)

// Confirm convierte en descuento definitivo todas las reservas vigentes de orderNo
// (stock -q, reserved -q) en una sola transacción.
func (c *Coordinator) Confirm(ctx context.Context, orderNo string) error {
	return c.runTimed(ctx, "confirm", func(txCtx context.Context, repos repository.Repositories) error {
		return c.ConfirmInTx(txCtx, repos, orderNo, nil)
	})
}

// Release devuelve a disponible todas las reservas vigentes de orderNo (reserved -q).
// Sin reservas vigentes es un no-op exitoso: tolera entregas repetidas de la cancelación.
func (c *Coordinator) Release(ctx context.Context, orderNo string) error {
	return c.runTimed(ctx, "release", func(txCtx context.Context, repos repository.Repositories) error {
		return c.ReleaseInTx(txCtx, repos, orderNo, nil)
	})
}

// ConfirmInTx ejecuta Confirm con los repositorios del llamador (misma transacción).
// Si retorna error el llamador debe hacer rollback.
// Una orden ya confirmada es un no-op; una orden sin reservas nunca confirmada es ErrStockInconsistency.
func (c *Coordinator) ConfirmInTx(ctx context.Context, repos repository.Repositories, orderNo string, operatorID *int64) error {
	positions, err := c.replay(ctx, repos, orderNo)
	if err != nil {
		return err
	}
	pending := stockledger.Outstanding(positions)
	if len(pending) == 0 {
		if stockledger.AnyConfirmed(positions) {
			return nil
		}
		return fmt.Errorf("confirmar orden %s sin reserva vigente: %w", orderNo, domain.ErrStockInconsistency)
	}
	for _, p := range pending {
		q := p.Outstanding()
		if err := c.applyLogged(ctx, repos, p.SkuID, -q, -q, entity.StockOpConfirm, q, orderNo, operatorID); err != nil {
			return err
		}
	}
	c.log.Info().Str("order_no", orderNo).Int("skus", len(pending)).Msg("stock confirmado")
	return nil
}

// ReleaseInTx ejecuta Release con los repositorios del llamador (misma transacción).
func (c *Coordinator) ReleaseInTx(ctx context.Context, repos repository.Repositories, orderNo string, operatorID *int64) error {
	positions, err := c.replay(ctx, repos, orderNo)
	if err != nil {
		return err
	}
	pending := stockledger.Outstanding(positions)
	for _, p := range pending {
		q := p.Outstanding()
		if err := c.applyLogged(ctx, repos, p.SkuID, 0, -q, entity.StockOpRelease, q, orderNo, operatorID); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		c.log.Info().Str("order_no", orderNo).Int("skus", len(pending)).Msg("reserva liberada")
	}
	return nil
}

// RestoreInTx repone stock (+q por línea) tras un reembolso completado.
// Solo procede si la orden descontó stock y no se había repuesto antes.
func (c *Coordinator) RestoreInTx(ctx context.Context, repos repository.Repositories, orderNo string, items []entity.OrderItem, operatorID *int64) error {
	positions, err := c.replay(ctx, repos, orderNo)
	if err != nil {
		return err
	}
	if stockledger.AnyRestored(positions) {
		return fmt.Errorf("orden %s ya repuso stock: %w", orderNo, domain.ErrStockInconsistency)
	}
	confirmed := make(map[int64]int, len(positions))
	for _, p := range positions {
		confirmed[p.SkuID] = p.Confirmed
	}

	qty := make(map[int64]int, len(items))
	for _, it := range items {
		qty[it.SkuID] += it.Quantity
	}
	skus := make([]int64, 0, len(qty))
	for sku := range qty {
		skus = append(skus, sku)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i] < skus[j] })

	for _, sku := range skus {
		q := qty[sku]
		if q <= 0 {
			continue
		}
		if q > confirmed[sku] {
			return &domain.StockError{SkuID: sku, Required: q, Available: confirmed[sku], Err: domain.ErrStockInconsistency}
		}
		if err := c.applyLogged(ctx, repos, sku, q, 0, entity.StockOpRestore, q, orderNo, operatorID); err != nil {
			return err
		}
	}
	c.log.Info().Str("order_no", orderNo).Int("skus", len(skus)).Msg("stock repuesto por reembolso")
	return nil
}

// replay bloquea la orden y reconstruye sus posiciones. Con el bloqueo tomado, una segunda
// transacción sobre la misma orden espera y luego lee el log ya actualizado por la primera.
func (c *Coordinator) replay(ctx context.Context, repos repository.Repositories, orderNo string) ([]stockledger.Position, error) {
	if orderNo == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := repos.StockLog.LockOrder(ctx, orderNo); err != nil {
		return nil, err
	}
	entries, err := repos.StockLog.ListByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	return stockledger.Replay(entries)
}

// applyLogged bloquea la fila, aplica el delta condicionado por versión y escribe la entrada del log.
// Cualquier desajuste entre la fila y lo que dice el log es ErrStockInconsistency (no se reintenta).
func (c *Coordinator) applyLogged(
	ctx context.Context,
	repos repository.Repositories,
	skuID int64,
	stockDelta, reservedDelta int,
	op entity.StockOperation,
	quantity int,
	orderNo string,
	operatorID *int64,
) error {
	cur, err := repos.Stock.GetForUpdate(ctx, skuID)
	if err != nil {
		return err
	}
	if cur == nil {
		return &domain.StockError{SkuID: skuID, Required: quantity, Err: domain.ErrStockInconsistency}
	}
	next := entity.SkuStock{Stock: cur.Stock + stockDelta, ReservedStock: cur.ReservedStock + reservedDelta}
	if !next.Valid() {
		return &domain.StockError{SkuID: skuID, Required: quantity, Available: cur.ReservedStock, Err: domain.ErrStockInconsistency}
	}
	ok, err := repos.Stock.ApplyDelta(ctx, skuID, stockDelta, reservedDelta, cur.Version)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.StockError{SkuID: skuID, Required: quantity, Available: cur.ReservedStock, Err: domain.ErrStockInconsistency}
	}
	return repos.StockLog.Create(ctx, &entity.StockOperationLog{
		SkuID:          skuID,
		Operation:      op,
		Quantity:       quantity,
		BeforeStock:    cur.Stock,
		AfterStock:     next.Stock,
		BeforeReserved: cur.ReservedStock,
		AfterReserved:  next.ReservedStock,
		OrderNo:        orderNo,
		OperatorID:     operatorID,
		CreatedAt:      c.now(),
	})
}

// runTimed ejecuta fn en una transacción acotada por TxTimeout y registra la métrica.
func (c *Coordinator) runTimed(ctx context.Context, op string, fn func(context.Context, repository.Repositories) error) error {
	start := c.now()
	txCtx, cancel := context.WithTimeout(ctx, c.opts.TxTimeout)
	defer cancel()
	err := c.txRunner.Run(txCtx, func(repos repository.Repositories) error {
		return fn(txCtx, repos)
	})
	c.metrics.ObserveStockOperation(op, outcome(err), time.Since(start))
	if err != nil {
		c.log.Error().Err(err).Str("operation", op).Msg("operación de stock fallida")
	}
	return err
}
