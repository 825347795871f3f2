package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// CreateOrderInput datos de checkout. OrderNo vacío genera uno nuevo.
type CreateOrderInput struct {
	OrderNo string
	UserID  int64
	Items   []entity.OrderItem
}

// Create reserva el stock del pedido y registra la orden en PendingPayment.
// Si la orden no puede insertarse, se revierte lo reservado por esta llamada antes de retornar.
func (m *StateMachine) Create(ctx context.Context, in CreateOrderInput) (*entity.Order, *stock.ReservationResult, error) {
	if in.UserID <= 0 || len(in.Items) == 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	total := decimal.Zero
	items := make([]stock.ReserveItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return nil, nil, domain.ErrInvalidInput
		}
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, stock.ReserveItem{SkuID: it.SkuID, Quantity: it.Quantity})
	}
	orderNo := in.OrderNo
	if orderNo == "" {
		orderNo = m.newOrderNo()
	}

	res, err := m.stock.Reserve(ctx, items, orderNo)
	if err != nil {
		return nil, res, err
	}

	now := m.now()
	o := &entity.Order{
		OrderNo:     orderNo,
		UserID:      in.UserID,
		Status:      entity.OrderPendingPayment,
		TotalAmount: total,
		PaidAmount:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpireAt:    now.Add(m.opts.PaymentWindow),
		Items:       append([]entity.OrderItem(nil), in.Items...),
	}
	txCtx, cancel := context.WithTimeout(ctx, m.opts.TxTimeout)
	defer cancel()
	err = m.txRunner.Run(txCtx, func(repos repository.Repositories) error {
		return repos.Orders.Create(txCtx, o)
	})
	if err != nil {
		m.log.Warn().Err(err).Str("order_no", orderNo).Msg("alta de orden fallida, revirtiendo reserva")
		// Solo lo que reservó esta llamada: otra orden con el mismo número puede tener reservas vigentes.
		if rbErr := m.stock.Rollback(ctx, res); rbErr != nil {
			m.log.Error().Err(rbErr).Str("order_no", orderNo).Msg("revertir reserva de orden no creada")
			return nil, res, errors.Join(fmt.Errorf("crear orden %s: %w", orderNo, err), rbErr)
		}
		return nil, res, fmt.Errorf("crear orden %s: %w", orderNo, err)
	}

	m.log.Info().Str("order_no", orderNo).Int64("user_id", in.UserID).
		Str("total", total.String()).Time("expire_at", o.ExpireAt).Msg("orden creada")
	return o, res, nil
}

// newOrderNo ORD + fecha + sufijo aleatorio.
func (m *StateMachine) newOrderNo() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return "ORD" + m.now().Format("20060102150405") + suffix
}
