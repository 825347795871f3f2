package stock

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	recentOpsLimit      = 5
)

// ItemAvailability disponibilidad de un SKU frente a la cantidad pedida.
type ItemAvailability struct {
	SkuID      int64
	Requested  int
	Stock      int
	Reserved   int
	Available  int
	Sufficient bool
	Reason     string
}

// AvailabilityReport resultado de CheckAvailability.
type AvailabilityReport struct {
	Items        []ItemAvailability
	AllAvailable bool
}

// HistoryFilter criterios de GetStockOperationHistory. Se requiere OrderNo o SkuID.
type HistoryFilter struct {
	OrderNo   string
	SkuID     int64
	Operation entity.StockOperation
	Limit     int
	Offset    int
}

// SkuStockInfo fila del ledger más sus operaciones recientes.
type SkuStockInfo struct {
	Stock      *entity.SkuStock
	RecentLogs []*entity.StockOperationLog
}

// CheckAvailability lectura sin bloqueo: el resultado puede quedar obsoleto al instante
// y no garantiza el éxito de un Reserve posterior.
func (c *Coordinator) CheckAvailability(ctx context.Context, items []ReserveItem) (*AvailabilityReport, error) {
	batch, err := normalize(items)
	if err != nil {
		return nil, err
	}
	report := &AvailabilityReport{AllAvailable: true, Items: make([]ItemAvailability, 0, len(batch))}
	for _, it := range batch {
		row, err := c.stockRepo.Get(ctx, it.SkuID)
		if err != nil {
			return nil, fmt.Errorf("consultar stock sku %d: %w", it.SkuID, err)
		}
		ia := ItemAvailability{SkuID: it.SkuID, Requested: it.Quantity}
		switch {
		case row == nil:
			ia.Reason = "SKU inexistente"
		default:
			ia.Stock = row.Stock
			ia.Reserved = row.ReservedStock
			ia.Available = row.Available()
			ia.Sufficient = ia.Available >= it.Quantity
			if !ia.Sufficient {
				ia.Reason = fmt.Sprintf("stock insuficiente: disponible %d", ia.Available)
			}
		}
		if !ia.Sufficient {
			report.AllAvailable = false
		}
		report.Items = append(report.Items, ia)
	}
	return report, nil
}

// GetStockOperationHistory entradas del log filtradas por orden o por SKU.
// Por orden: orden de inserción. Por SKU: más recientes primero.
func (c *Coordinator) GetStockOperationHistory(ctx context.Context, f HistoryFilter) ([]*entity.StockOperationLog, error) {
	if f.OrderNo == "" && f.SkuID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultHistoryLimit
	case f.Limit > maxHistoryLimit:
		f.Limit = maxHistoryLimit
	}
	return c.logRepo.List(ctx, repository.StockLogFilter{
		OrderNo:   f.OrderNo,
		SkuID:     f.SkuID,
		Operation: f.Operation,
		Limit:     f.Limit,
		Offset:    f.Offset,
	})
}

// GetSkuStockInfo devuelve la fila del SKU y sus últimas operaciones.
func (c *Coordinator) GetSkuStockInfo(ctx context.Context, skuID int64) (*SkuStockInfo, error) {
	if skuID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	row, err := c.stockRepo.Get(ctx, skuID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	logs, err := c.logRepo.ListRecentBySku(ctx, skuID, recentOpsLimit)
	if err != nil {
		return nil, err
	}
	return &SkuStockInfo{Stock: row, RecentLogs: logs}, nil
}
