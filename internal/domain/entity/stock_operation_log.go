package entity

import "time"

// StockOperation tipo de operación sobre el stock de un SKU.
type StockOperation int

// Códigos persistidos en stock_operation_log.operation_type.
const (
	StockOpReserve  StockOperation = 1 // retención provisional
	StockOpConfirm  StockOperation = 2 // descuento definitivo (pago)
	StockOpRelease  StockOperation = 3 // liberación (cancelación)
	StockOpRollback StockOperation = 4 // compensación dentro de un lote fallido
	StockOpRestore  StockOperation = 5 // reposición tras reembolso
)

func (o StockOperation) String() string {
	switch o {
	case StockOpReserve:
		return "RESERVE"
	case StockOpConfirm:
		return "CONFIRM"
	case StockOpRelease:
		return "RELEASE"
	case StockOpRollback:
		return "ROLLBACK"
	case StockOpRestore:
		return "RESTORE"
	}
	return "UNKNOWN"
}

// ParseStockOperation convierte el nombre (RESERVE, CONFIRM...) al código.
func ParseStockOperation(s string) (StockOperation, bool) {
	for op := StockOpReserve; op <= StockOpRestore; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// StockOperationLog entrada inmutable del registro de auditoría de stock.
// Las snapshots Before/After permiten reconstruir qué hizo un lote parcialmente fallido.
type StockOperationLog struct {
	ID             int64
	SkuID          int64
	Operation      StockOperation
	Quantity       int
	BeforeStock    int
	AfterStock     int
	BeforeReserved int
	AfterReserved  int
	OrderNo        string
	OperatorID     *int64 // solo en ajustes manuales
	CreatedAt      time.Time
}
