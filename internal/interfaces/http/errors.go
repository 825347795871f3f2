package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/dto"
	"github.com/jhoicas/stock-engine/internal/domain"
)

// errorStatus traduce un error de dominio a código HTTP y cuerpo de error.
// El orden importa: una inconsistencia puede venir unida a un timeout de la compensación
// y sigue siendo 500; ErrDuplicateReservation envuelve ErrConflict.
func errorStatus(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrStockInconsistency):
		// El detalle queda en el log del coordinador; al cliente no se le expone.
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "STOCK_INCONSISTENCY", Message: "error del sistema"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()}
	case domain.IsRetryable(err):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "RETRY", Message: "operación concurrente en curso, reintente"}
	case errors.Is(err, domain.ErrIllegalTransition):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "ILLEGAL_TRANSITION", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicateReservation):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE_RESERVATION", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := errorStatus(err)
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: msg})
}
