package stock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-engine/internal/domain"
)

func TestOutcome(t *testing.T) {
	// Compensación fallida por timeout: sigue siendo inconsistencia.
	compensation := fmt.Errorf("compensar reservas de O-1: %w: %w", domain.ErrStockInconsistency,
		errors.Join(fmt.Errorf("rollback sku 1: %w", domain.ErrStorageTimeout)))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, "ok"},
		{"compensación con timeout", compensation, "inconsistency"},
		{"timeout", fmt.Errorf("get: %w", domain.ErrStorageTimeout), "timeout"},
		{"insuficiente", &domain.StockError{SkuID: 1, Err: domain.ErrInsufficientStock}, "insufficient_stock"},
		{"versión", &domain.StockError{SkuID: 1, Err: domain.ErrVersionConflict}, "version_conflict"},
		{"duplicada", domain.ErrDuplicateReservation, "duplicate"},
		{"otro", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}
