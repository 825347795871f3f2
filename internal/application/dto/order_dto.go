package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// OrderItemRequest línea de la orden.
type OrderItemRequest struct {
	SkuID     int64           `json:"sku_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest body de POST /api/orders.
type CreateOrderRequest struct {
	OrderNo string             `json:"order_no"`
	UserID  int64              `json:"user_id"`
	Items   []OrderItemRequest `json:"items"`
}

func (r CreateOrderRequest) ToInput() order.CreateOrderInput {
	in := order.CreateOrderInput{OrderNo: r.OrderNo, UserID: r.UserID}
	for _, it := range r.Items {
		in.Items = append(in.Items, entity.OrderItem{SkuID: it.SkuID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return in
}

// OrderResponse orden con sus líneas.
type OrderResponse struct {
	OrderNo     string             `json:"order_no"`
	UserID      int64              `json:"user_id"`
	Status      string             `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	PaidAmount  decimal.Decimal    `json:"paid_amount"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpireAt    time.Time          `json:"expire_at"`
	Items       []OrderItemRequest `json:"items"`
}

func ToOrderResponse(o *entity.Order) OrderResponse {
	out := OrderResponse{
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount,
		PaidAmount:  o.PaidAmount,
		CreatedAt:   o.CreatedAt,
		ExpireAt:    o.ExpireAt,
		Items:       make([]OrderItemRequest, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, OrderItemRequest{SkuID: it.SkuID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

// TransitionRequest body de POST /api/orders/:orderNo/transitions.
// Target es el nombre del estado (PAID, CANCELLED...).
type TransitionRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// BatchTransitionRequest body de POST /api/orders/transitions/batch.
type BatchTransitionRequest struct {
	OrderNos []string `json:"order_nos"`
	Target   string   `json:"target"`
	Reason   string   `json:"reason"`
}

// StatusLogDTO transición registrada.
type StatusLogDTO struct {
	ID         int64     `json:"id"`
	OrderNo    string    `json:"order_no"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	OperatorID *int64    `json:"operator_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToStatusLog(e *entity.OrderStatusLog) StatusLogDTO {
	return StatusLogDTO{
		ID:         e.ID,
		OrderNo:    e.OrderNo,
		From:       e.FromStatus.String(),
		To:         e.ToStatus.String(),
		Reason:     e.Reason,
		OperatorID: e.OperatorID,
		CreatedAt:  e.CreatedAt,
	}
}

func ToStatusLogs(list []*entity.OrderStatusLog) []StatusLogDTO {
	out := make([]StatusLogDTO, 0, len(list))
	for _, e := range list {
		out = append(out, ToStatusLog(e))
	}
	return out
}

// BatchResultDTO resultado por orden de una transición en lote.
type BatchResultDTO struct {
	OrderNo string `json:"order_no"`
	OK      bool   `json:"ok"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Error   string `json:"error,omitempty"`
}

func ToBatchResults(results []order.TransitionResult) []BatchResultDTO {
	out := make([]BatchResultDTO, 0, len(results))
	for _, r := range results {
		d := BatchResultDTO{OrderNo: r.OrderNo, OK: r.OK(), To: r.To.String()}
		if r.From != 0 {
			d.From = r.From.String()
		}
		if r.Err != nil {
			d.Error = r.Err.Error()
		}
		out = append(out, d)
	}
	return out
}

// StatusNames nombres de una lista de estados.
func StatusNames(list []entity.OrderStatus) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.String())
	}
	return out
}
