package stock

import (
	"context"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// LockProvider exclusión mutua best-effort por clave, con TTL.
// Es una optimización de latencia: la corrección la garantiza el bloqueo de fila
// más la actualización condicionada por versión. Un coordinador sin proveedor (nil) es válido.
type LockProvider interface {
	// TryAcquire no bloquea esperando al titular actual; devuelve false si la clave está tomada.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release libera la clave solo si owner sigue siendo el titular.
	Release(ctx context.Context, key, owner string) error
}

// MetricsRecorder recibe los resultados de operaciones para observabilidad.
type MetricsRecorder interface {
	ObserveStockOperation(operation, outcome string, elapsed time.Duration)
	ObserveLockAcquire(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveStockOperation(string, string, time.Duration) {}
func (noopMetrics) ObserveLockAcquire(string)                          {}
