package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre la tabla sku_stock (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const selectSkuStock = `
	SELECT sku_id, stock, reserved_stock, version, updated_at
	FROM sku_stock WHERE sku_id = $1`

// Get lectura sin bloqueo. nil, nil si el SKU no existe.
func (r *StockRepo) Get(ctx context.Context, skuID int64) (*entity.SkuStock, error) {
	return r.get(ctx, selectSkuStock, skuID, "get sku stock")
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, skuID int64) (*entity.SkuStock, error) {
	return r.get(ctx, selectSkuStock+` FOR UPDATE`, skuID, "get sku stock for update")
}

func (r *StockRepo) get(ctx context.Context, query string, skuID int64, op string) (*entity.SkuStock, error) {
	var s entity.SkuStock
	err := r.q.QueryRow(ctx, query, skuID).Scan(&s.SkuID, &s.Stock, &s.ReservedStock, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap(op, err)
	}
	return &s, nil
}

// ApplyDelta actualización condicionada: versión esperada y 0 <= reserved <= stock tras el cambio.
func (r *StockRepo) ApplyDelta(ctx context.Context, skuID int64, stockDelta, reservedDelta int, expectedVersion int64) (bool, error) {
	query := `
		UPDATE sku_stock
		SET stock = stock + $2,
		    reserved_stock = reserved_stock + $3,
		    version = version + 1,
		    updated_at = now()
		WHERE sku_id = $1
		  AND version = $4
		  AND stock + $2 >= 0
		  AND reserved_stock + $3 >= 0
		  AND reserved_stock + $3 <= stock + $2`
	tag, err := r.q.Exec(ctx, query, skuID, stockDelta, reservedDelta, expectedVersion)
	if err != nil {
		return false, wrap("apply stock delta", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Create alta de la fila de un SKU.
func (r *StockRepo) Create(ctx context.Context, s *entity.SkuStock) error {
	query := `
		INSERT INTO sku_stock (sku_id, stock, reserved_stock, version, updated_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING updated_at`
	err := r.q.QueryRow(ctx, query, s.SkuID, s.Stock, s.ReservedStock, s.Version).Scan(&s.UpdatedAt)
	return wrap("create sku stock", err)
}
