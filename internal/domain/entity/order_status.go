package entity

// OrderStatus estado del ciclo de vida de una orden. Los códigos se persisten.
type OrderStatus int

const (
	OrderPendingPayment  OrderStatus = 1
	OrderPaid            OrderStatus = 2
	OrderPendingShipment OrderStatus = 3
	OrderShipped         OrderStatus = 4
	OrderCompleted       OrderStatus = 5
	OrderCancelled       OrderStatus = 6
	OrderRefunding       OrderStatus = 7
	OrderRefunded        OrderStatus = 8
)

var orderStatusNames = map[OrderStatus]string{
	OrderPendingPayment:  "PENDING_PAYMENT",
	OrderPaid:            "PAID",
	OrderPendingShipment: "PENDING_SHIPMENT",
	OrderShipped:         "SHIPPED",
	OrderCompleted:       "COMPLETED",
	OrderCancelled:       "CANCELLED",
	OrderRefunding:       "REFUNDING",
	OrderRefunded:        "REFUNDED",
}

func (s OrderStatus) String() string {
	if n, ok := orderStatusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid indica si el código corresponde a un estado conocido.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// ParseOrderStatus convierte el nombre (PAID, CANCELLED...) al estado.
func ParseOrderStatus(name string) (OrderStatus, bool) {
	for st, n := range orderStatusNames {
		if n == name {
			return st, true
		}
	}
	return 0, false
}
