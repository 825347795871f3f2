package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order orden de compra. OrderNo es el identificador estable hacia el exterior
// y la referencia que correlaciona reservas, log de stock y transiciones.
type Order struct {
	ID          int64
	OrderNo     string
	UserID      int64
	Status      OrderStatus
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpireAt    time.Time
	Items       []OrderItem
}

// OrderItem línea de la orden: exactamente el lote que se pasa al coordinador de stock.
type OrderItem struct {
	SkuID     int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderStatusLog registro de una transición aplicada.
type OrderStatusLog struct {
	ID         int64
	OrderNo    string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Reason     string
	OperatorID *int64
	CreatedAt  time.Time
}
