package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes y sus líneas (tablas orders y order_items).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
// Create inserta cabecera y líneas: usarlo con una tx.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const selectOrder = `
	SELECT id, order_no, user_id, status, total_amount, paid_amount, created_at, updated_at, expire_at
	FROM orders WHERE order_no = $1`

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (order_no, user_id, status, total_amount, paid_amount, created_at, updated_at, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		o.OrderNo, o.UserID, int(o.Status), o.TotalAmount, o.PaidAmount, o.CreatedAt, o.UpdatedAt, o.ExpireAt,
	).Scan(&o.ID)
	if err != nil {
		return wrap("create order", err)
	}
	for _, it := range o.Items {
		_, err := r.q.Exec(ctx,
			`INSERT INTO order_items (order_id, sku_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`,
			o.ID, it.SkuID, it.Quantity, it.UnitPrice)
		if err != nil {
			return wrap("create order item", err)
		}
	}
	return nil
}

func (r *OrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*entity.Order, error) {
	return r.get(ctx, selectOrder, orderNo)
}

// GetByOrderNoForUpdate bloquea solo la fila de orders; las líneas no cambian tras la creación.
func (r *OrderRepo) GetByOrderNoForUpdate(ctx context.Context, orderNo string) (*entity.Order, error) {
	return r.get(ctx, selectOrder+` FOR UPDATE`, orderNo)
}

func (r *OrderRepo) get(ctx context.Context, query, orderNo string) (*entity.Order, error) {
	var (
		o      entity.Order
		status int
	)
	err := r.q.QueryRow(ctx, query, orderNo).Scan(
		&o.ID, &o.OrderNo, &o.UserID, &status, &o.TotalAmount, &o.PaidAmount, &o.CreatedAt, &o.UpdatedAt, &o.ExpireAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get order", err)
	}
	o.Status = entity.OrderStatus(status)

	rows, err := r.q.Query(ctx, `SELECT sku_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, wrap("list order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.SkuID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, wrap("scan order item", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate order items", err)
	}
	return &o, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderNo string, status entity.OrderStatus, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE order_no = $1`, orderNo, int(status), updatedAt)
	if err != nil {
		return wrap("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) ListExpired(ctx context.Context, status entity.OrderStatus, before time.Time, limit int) ([]string, error) {
	query := `
		SELECT order_no FROM orders
		WHERE status = $1 AND expire_at < $2
		ORDER BY expire_at, id
		LIMIT $3`
	rows, err := r.q.Query(ctx, query, int(status), before, limit)
	if err != nil {
		return nil, wrap("list expired orders", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return nil, wrap("scan expired order", err)
		}
		out = append(out, no)
	}
	return out, wrap("iterate expired orders", rows.Err())
}

var _ repository.OrderStatusLogRepository = (*OrderStatusLogRepo)(nil)

// OrderStatusLogRepo historial de transiciones (tabla order_status_log).
type OrderStatusLogRepo struct {
	q Querier
}

// NewOrderStatusLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderStatusLogRepository(q Querier) *OrderStatusLogRepo {
	return &OrderStatusLogRepo{q: q}
}

func (r *OrderStatusLogRepo) Create(ctx context.Context, e *entity.OrderStatusLog) error {
	query := `
		INSERT INTO order_status_log (order_no, from_status, to_status, reason, operator_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		e.OrderNo, int(e.FromStatus), int(e.ToStatus), e.Reason, e.OperatorID, e.CreatedAt,
	).Scan(&e.ID)
	return wrap("create order status log", err)
}

func (r *OrderStatusLogRepo) ListByOrderNo(ctx context.Context, orderNo string) ([]*entity.OrderStatusLog, error) {
	query := `
		SELECT id, order_no, from_status, to_status, reason, operator_id, created_at
		FROM order_status_log WHERE order_no = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, orderNo)
	if err != nil {
		return nil, wrap("list order status log", err)
	}
	defer rows.Close()
	var list []*entity.OrderStatusLog
	for rows.Next() {
		var (
			e        entity.OrderStatusLog
			from, to int
		)
		if err := rows.Scan(&e.ID, &e.OrderNo, &from, &to, &e.Reason, &e.OperatorID, &e.CreatedAt); err != nil {
			return nil, wrap("scan order status log", err)
		}
		e.FromStatus, e.ToStatus = entity.OrderStatus(from), entity.OrderStatus(to)
		list = append(list, &e)
	}
	return list, wrap("iterate order status log", rows.Err())
}
