package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// StockLogFilter criterios de consulta del log de stock. Campos cero = sin filtro.
type StockLogFilter struct {
	OrderNo   string
	SkuID     int64
	Operation entity.StockOperation
	Limit     int
	Offset    int
}

// StockOperationLogRepository puerto del registro de auditoría (solo inserción).
type StockOperationLogRepository interface {
	Create(ctx context.Context, entry *entity.StockOperationLog) error
	// LockOrder serializa hasta el fin de la transacción las operaciones sobre orderNo.
	// Debe tomarse antes de leer el log de la orden para decidir qué escribir.
	LockOrder(ctx context.Context, orderNo string) error
	// ListByOrderNo en orden de inserción (ascendente), base para reconstruir reservas.
	ListByOrderNo(ctx context.Context, orderNo string) ([]*entity.StockOperationLog, error)
	// ListRecentBySku más recientes primero.
	ListRecentBySku(ctx context.Context, skuID int64, limit int) ([]*entity.StockOperationLog, error)
	List(ctx context.Context, filter StockLogFilter) ([]*entity.StockOperationLog, error)
}
