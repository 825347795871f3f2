package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// StockRepository define el puerto para leer y actualizar los contadores de un SKU.
// Las escrituras solo ocurren mediante ApplyDelta (actualización condicionada por versión).
type StockRepository interface {
	// Get lectura libre, sin bloqueo. Devuelve nil, nil si el SKU no existe.
	Get(ctx context.Context, skuID int64) (*entity.SkuStock, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, skuID int64) (*entity.SkuStock, error)
	// ApplyDelta suma stockDelta y reservedDelta e incrementa version, solo si la fila
	// conserva expectedVersion y el resultado mantiene 0 <= reserved <= stock.
	// Devuelve false si la condición no se cumplió (ninguna fila afectada).
	ApplyDelta(ctx context.Context, skuID int64, stockDelta, reservedDelta int, expectedVersion int64) (bool, error)
	// Create da de alta la fila del SKU (listado de una variante nueva).
	Create(ctx context.Context, stock *entity.SkuStock) error
}
