package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.StockOperationLogRepository = (*StockOperationLogRepo)(nil)

// StockOperationLogRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockOperationLogRepo struct {
	q Querier
}

// NewStockOperationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockOperationLogRepository(q Querier) *StockOperationLogRepo {
	return &StockOperationLogRepo{q: q}
}

const stockLogColumns = `id, sku_id, operation_type, quantity, before_stock, after_stock,
	before_reserved, after_reserved, order_no, operator_id, created_at`

// Create persiste una entrada del log. Se escribe en la misma tx que el cambio de stock.
func (r *StockOperationLogRepo) Create(ctx context.Context, e *entity.StockOperationLog) error {
	query := `
		INSERT INTO stock_operation_log (sku_id, operation_type, quantity, before_stock, after_stock,
			before_reserved, after_reserved, order_no, operator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		e.SkuID, int(e.Operation), e.Quantity, e.BeforeStock, e.AfterStock,
		e.BeforeReserved, e.AfterReserved, nullString(e.OrderNo), e.OperatorID, e.CreatedAt,
	).Scan(&e.ID)
	return wrap("create stock operation log", err)
}

// orderLockClass primer argumento de pg_advisory_xact_lock para no chocar con otros usos.
const orderLockClass = 7301

// LockOrder bloqueo consultivo de transacción sobre la orden; se libera con commit o rollback.
func (r *StockOperationLogRepo) LockOrder(ctx context.Context, orderNo string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, orderLockClass, orderNo)
	return wrap("lock order", err)
}

// ListByOrderNo entradas de una orden en orden de inserción.
func (r *StockOperationLogRepo) ListByOrderNo(ctx context.Context, orderNo string) ([]*entity.StockOperationLog, error) {
	query := `SELECT ` + stockLogColumns + ` FROM stock_operation_log WHERE order_no = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, orderNo)
	if err != nil {
		return nil, wrap("list stock log by order", err)
	}
	return scanStockLogs(rows)
}

// ListRecentBySku últimas entradas de un SKU, más recientes primero.
func (r *StockOperationLogRepo) ListRecentBySku(ctx context.Context, skuID int64, limit int) ([]*entity.StockOperationLog, error) {
	query := `SELECT ` + stockLogColumns + ` FROM stock_operation_log WHERE sku_id = $1 ORDER BY id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, skuID, limit)
	if err != nil {
		return nil, wrap("list recent stock log", err)
	}
	return scanStockLogs(rows)
}

// List filtro dinámico. Con OrderNo ordena ascendente; en otro caso, más recientes primero.
func (r *StockOperationLogRepo) List(ctx context.Context, f repository.StockLogFilter) ([]*entity.StockOperationLog, error) {
	query := `SELECT ` + stockLogColumns + ` FROM stock_operation_log WHERE 1=1`
	var args []any
	pos := 1
	if f.OrderNo != "" {
		query += fmt.Sprintf(" AND order_no = $%d", pos)
		args = append(args, f.OrderNo)
		pos++
	}
	if f.SkuID > 0 {
		query += fmt.Sprintf(" AND sku_id = $%d", pos)
		args = append(args, f.SkuID)
		pos++
	}
	if f.Operation != 0 {
		query += fmt.Sprintf(" AND operation_type = $%d", pos)
		args = append(args, int(f.Operation))
		pos++
	}
	if f.OrderNo != "" {
		query += " ORDER BY id"
	} else {
		query += " ORDER BY id DESC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list stock log", err)
	}
	return scanStockLogs(rows)
}

func scanStockLogs(rows pgx.Rows) ([]*entity.StockOperationLog, error) {
	defer rows.Close()
	var list []*entity.StockOperationLog
	for rows.Next() {
		var (
			e       entity.StockOperationLog
			op      int
			orderNo *string
		)
		if err := rows.Scan(&e.ID, &e.SkuID, &op, &e.Quantity, &e.BeforeStock, &e.AfterStock,
			&e.BeforeReserved, &e.AfterReserved, &orderNo, &e.OperatorID, &e.CreatedAt); err != nil {
			return nil, wrap("scan stock log", err)
		}
		e.Operation = entity.StockOperation(op)
		if orderNo != nil {
			e.OrderNo = *orderNo
		}
		list = append(list, &e)
	}
	return list, wrap("iterate stock log", rows.Err())
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
