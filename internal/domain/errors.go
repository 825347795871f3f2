package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Recuperable: el llamador puede reintentar con otra cantidad o informar al usuario.
	ErrInsufficientStock = errors.New("stock insuficiente")
	// Recuperable: se perdió la carrera contra otro escritor; reenviar el lote completo.
	ErrVersionConflict = errors.New("conflicto de versión de stock")
	// Fatal: el log de operaciones y la fila de stock divergen. Nunca se corrige en silencio.
	ErrStockInconsistency = errors.New("inconsistencia de stock")
	// Error del llamador: la transición no existe en la tabla de estados.
	ErrIllegalTransition = errors.New("transición de estado no permitida")
	// Ya existe una reserva vigente (o confirmada) para la orden.
	ErrDuplicateReservation = fmt.Errorf("reserva duplicada: %w", ErrConflict)
	// Recuperable: expiró la espera por un bloqueo de fila o el plazo de la unidad de trabajo.
	ErrStorageTimeout = errors.New("tiempo de espera agotado en almacenamiento")
)

// StockError detalla el fallo de un SKU concreto. Envuelve ErrInsufficientStock,
// ErrVersionConflict o ErrStockInconsistency según el caso.
type StockError struct {
	SkuID     int64
	Required  int
	Available int
	Err       error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: sku=%d requerido=%d disponible=%d", e.Err, e.SkuID, e.Required, e.Available)
}

func (e *StockError) Unwrap() error { return e.Err }

// TransitionError describe una transición rechazada (from -> to) de una orden.
type TransitionError struct {
	OrderNo string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: orden %s de %s a %s", ErrIllegalTransition, e.OrderNo, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsRetryable indica si el error admite reintento por parte del llamador.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrStorageTimeout)
}
