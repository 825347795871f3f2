// Package metrics expone contadores e histogramas Prometheus del motor de stock.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/application/stock"
)

var (
	_ stock.MetricsRecorder = (*Recorder)(nil)
	_ order.MetricsRecorder = (*Recorder)(nil)
)

// Recorder implementa los recolectores de stock y de órdenes.
type Recorder struct {
	stockOps     *prometheus.CounterVec
	stockLatency *prometheus.HistogramVec
	lockAcquire  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

// New registra las métricas en reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		stockOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_engine",
			Name:      "stock_operations_total",
			Help:      "Operaciones de stock por tipo y resultado.",
		}, []string{"operation", "outcome"}),
		stockLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stock_engine",
			Name:      "stock_operation_seconds",
			Help:      "Duración de las operaciones de stock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		lockAcquire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_engine",
			Name:      "lock_acquire_total",
			Help:      "Intentos de bloqueo distribuido por resultado (acquired, busy, unavailable).",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_engine",
			Name:      "order_transitions_total",
			Help:      "Transiciones de estado solicitadas por origen, destino y resultado.",
		}, []string{"from", "to", "outcome"}),
	}
	reg.MustRegister(r.stockOps, r.stockLatency, r.lockAcquire, r.transitions)
	return r
}

func (r *Recorder) ObserveStockOperation(operation, outcome string, elapsed time.Duration) {
	r.stockOps.WithLabelValues(operation, outcome).Inc()
	r.stockLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveLockAcquire(outcome string) {
	r.lockAcquire.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveTransition(from, to, outcome string) {
	r.transitions.WithLabelValues(from, to, outcome).Inc()
}
