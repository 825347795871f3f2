package http

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-engine/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	// Compensación de reserva fallida con uno de los rollbacks vencido por timeout.
	compensation := fmt.Errorf("compensar reservas de O-1: %w: %w", domain.ErrStockInconsistency,
		errors.Join(fmt.Errorf("rollback sku 2: %w", domain.ErrStorageTimeout)))

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"inconsistencia con timeout", compensation, fiber.StatusInternalServerError, "STOCK_INCONSISTENCY"},
		{"timeout", fmt.Errorf("get: %w", domain.ErrStorageTimeout), fiber.StatusConflict, "RETRY"},
		{"conflicto de versión", &domain.StockError{SkuID: 1, Err: domain.ErrVersionConflict}, fiber.StatusConflict, "RETRY"},
		{"stock insuficiente", &domain.StockError{SkuID: 1, Err: domain.ErrInsufficientStock}, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{"duplicada", domain.ErrDuplicateReservation, fiber.StatusConflict, "DUPLICATE_RESERVATION"},
		{"conflicto", domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
		{"transición", &domain.TransitionError{OrderNo: "O-1", From: "PAID", To: "PENDING_PAYMENT"}, fiber.StatusUnprocessableEntity, "ILLEGAL_TRANSITION"},
		{"desconocido", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	_, body := errorStatus(compensation)
	assert.Equal(t, "error del sistema", body.Message)
}
