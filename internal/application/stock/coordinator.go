package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// Valores por defecto de Options.
const (
	DefaultLockTTL         = 30 * time.Second
	DefaultLockWaitTimeout = 2 * time.Second
	DefaultTxTimeout       = 10 * time.Second
)

// Options plazos del coordinador. Ningún punto de bloqueo espera sin límite.
type Options struct {
	LockTTL         time.Duration // vida del bloqueo distribuido (consultivo)
	LockWaitTimeout time.Duration // plazo de cada llamada al LockProvider
	TxTimeout       time.Duration // plazo de cada unidad de trabajo en almacenamiento
}

func (o Options) withDefaults() Options {
	if o.LockTTL <= 0 {
		o.LockTTL = DefaultLockTTL
	}
	if o.LockWaitTimeout <= 0 {
		o.LockWaitTimeout = DefaultLockWaitTimeout
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = DefaultTxTimeout
	}
	return o
}

// Coordinator orquesta reservas, confirmaciones y liberaciones de stock por orden.
// Todas las escrituras van por TxRunner; stockRepo y logRepo (atados al pool) solo se usan para lecturas.
type Coordinator struct {
	txRunner  TxRunner
	stockRepo repository.StockRepository
	logRepo   repository.StockOperationLogRepository
	locks     LockProvider
	metrics   MetricsRecorder
	log       zerolog.Logger
	opts      Options
	now       func() time.Time
}

// NewCoordinator construye el coordinador. locks puede ser nil: se degrada a exclusividad de fila.
func NewCoordinator(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	logRepo repository.StockOperationLogRepository,
	locks LockProvider,
	log zerolog.Logger,
	opts Options,
) *Coordinator {
	return &Coordinator{
		txRunner:  txRunner,
		stockRepo: stockRepo,
		logRepo:   logRepo,
		locks:     locks,
		metrics:   noopMetrics{},
		log:       log.With().Str("component", "stock_coordinator").Logger(),
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// WithMetrics registra el recolector de métricas.
func (c *Coordinator) WithMetrics(m MetricsRecorder) *Coordinator {
	if m != nil {
		c.metrics = m
	}
	return c
}

// LockKey clave del bloqueo distribuido de un SKU.
func LockKey(skuID int64) string {
	return fmt.Sprintf("sku:%d", skuID)
}

// outcome etiqueta de métricas para un error de operación.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStockInconsistency):
		return "inconsistency"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrDuplicateReservation):
		return "duplicate"
	case errors.Is(err, domain.ErrStorageTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	}
	return "error"
}
