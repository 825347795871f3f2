package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// OrderRepository puerto de persistencia de órdenes. Solo expone lo que necesita
// la máquina de estados; el resto del CRUD de órdenes vive fuera de este servicio.
type OrderRepository interface {
	// Create inserta la orden con sus líneas.
	Create(ctx context.Context, order *entity.Order) error
	// GetByOrderNo lectura libre con líneas. nil, nil si no existe.
	GetByOrderNo(ctx context.Context, orderNo string) (*entity.Order, error)
	// GetByOrderNoForUpdate bloquea la fila de la orden (SELECT FOR UPDATE) y carga líneas.
	GetByOrderNoForUpdate(ctx context.Context, orderNo string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, orderNo string, status entity.OrderStatus, updatedAt time.Time) error
	// ListExpired órdenes en status con ExpireAt anterior a before.
	ListExpired(ctx context.Context, status entity.OrderStatus, before time.Time, limit int) ([]string, error)
}

// OrderStatusLogRepository puerto del historial de transiciones.
type OrderStatusLogRepository interface {
	Create(ctx context.Context, entry *entity.OrderStatusLog) error
	ListByOrderNo(ctx context.Context, orderNo string) ([]*entity.OrderStatusLog, error)
}
