package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveStockOperation("reserve", "ok", 5*time.Millisecond)
	r.ObserveStockOperation("reserve", "ok", 7*time.Millisecond)
	r.ObserveStockOperation("reserve", "insufficient_stock", time.Millisecond)
	r.ObserveLockAcquire("busy")
	r.ObserveTransition("PENDING_PAYMENT", "PAID", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.stockOps.WithLabelValues("reserve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stockOps.WithLabelValues("reserve", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lockAcquire.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("PENDING_PAYMENT", "PAID", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stockLatency))
}
