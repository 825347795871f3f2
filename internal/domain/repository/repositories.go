package repository

// Repositories agrupa los repositorios atados a una misma transacción.
type Repositories struct {
	Stock     StockRepository
	StockLog  StockOperationLogRepository
	Orders    OrderRepository
	StatusLog OrderStatusLogRepository
}
