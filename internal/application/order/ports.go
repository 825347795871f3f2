package order

import (
	"context"
	"time"

	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con repositorios atados a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// StockCoordinator operaciones de stock que dispara el ciclo de vida de la orden.
// Las variantes InTx corren dentro de la transacción de la transición.
type StockCoordinator interface {
	Reserve(ctx context.Context, items []stock.ReserveItem, orderNo string) (*stock.ReservationResult, error)
	Rollback(ctx context.Context, res *stock.ReservationResult) error
	ConfirmInTx(ctx context.Context, repos repository.Repositories, orderNo string, operatorID *int64) error
	ReleaseInTx(ctx context.Context, repos repository.Repositories, orderNo string, operatorID *int64) error
	RestoreInTx(ctx context.Context, repos repository.Repositories, orderNo string, items []entity.OrderItem, operatorID *int64) error
}

// StatusEvent cambio de estado ya confirmado en base de datos.
type StatusEvent struct {
	OrderNo    string
	From       entity.OrderStatus
	To         entity.OrderStatus
	Reason     string
	OperatorID *int64
	OccurredAt time.Time
}

// StatusEventPublisher difunde cambios de estado. Es best-effort: un fallo no revierte la transición.
type StatusEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusEvent) error
}

// MetricsRecorder métricas de transiciones.
type MetricsRecorder interface {
	ObserveTransition(from, to, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(string, string, string) {}
