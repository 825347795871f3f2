package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/dto"
	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// maxBatchSize órdenes admitidas por petición de transición en lote.
const maxBatchSize = 500

// OrderHandler expone la máquina de estados de órdenes (protegido).
type OrderHandler struct {
	sm *order.StateMachine
}

// NewOrderHandler construye el handler.
func NewOrderHandler(sm *order.StateMachine) *OrderHandler {
	return &OrderHandler{sm: sm}
}

// Create godoc
// @Summary      Crear orden (reserva el stock y queda pendiente de pago)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateOrderRequest  true  "user_id e items (sku_id, quantity, unit_price)"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	o, _, err := h.sm.Create(c.Context(), in.ToInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOrderResponse(o))
}

// Get godoc
// @Summary      Obtener orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        orderNo  path  string  true  "Número de orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{orderNo} [get]
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.sm.Get(c.Context(), c.Params("orderNo"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// Transition godoc
// @Summary      Cambiar el estado de una orden
// @Description  Aplica el efecto de stock asociado (confirmar, liberar o reponer) en la misma transacción.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        orderNo  path  string                 true  "Número de orden"
// @Param        body     body  dto.TransitionRequest  true  "target (PAID, CANCELLED...) y reason"
// @Success      200  {object}  dto.StatusLogDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{orderNo}/transitions [post]
func (h *OrderHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	target, err := parseTarget(in.Target)
	if err != nil {
		return writeError(c, err)
	}
	entry, err := h.sm.Transition(c.Context(), order.TransitionRequest{
		OrderNo:    c.Params("orderNo"),
		Target:     target,
		Reason:     in.Reason,
		OperatorID: OperatorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStatusLog(entry))
}

// BatchTransition godoc
// @Summary      Aplicar la misma transición a varias órdenes
// @Description  No es atómico: cada orden informa su propio resultado.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchTransitionRequest  true  "order_nos, target y reason"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/orders/transitions/batch [post]
func (h *OrderHandler) BatchTransition(c *fiber.Ctx) error {
	var in dto.BatchTransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	if len(in.OrderNos) == 0 || len(in.OrderNos) > maxBatchSize {
		return writeError(c, fmt.Errorf("order_nos debe tener entre 1 y %d elementos: %w", maxBatchSize, domain.ErrInvalidInput))
	}
	target, err := parseTarget(in.Target)
	if err != nil {
		return writeError(c, err)
	}
	results := h.sm.BatchTransition(c.Context(), in.OrderNos, target, in.Reason, OperatorID(c))
	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}
	return c.JSON(fiber.Map{
		"total":     len(results),
		"succeeded": ok,
		"failed":    len(results) - ok,
		"results":   dto.ToBatchResults(results),
	})
}

// History godoc
// @Summary      Historial de transiciones de una orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        orderNo  path  string  true  "Número de orden"
// @Success      200  {array}   dto.StatusLogDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{orderNo}/transitions [get]
func (h *OrderHandler) History(c *fiber.Ctx) error {
	list, err := h.sm.GetTransitionHistory(c.Context(), c.Params("orderNo"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStatusLogs(list))
}

// NextStatuses godoc
// @Summary      Estados alcanzables desde el estado actual
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        orderNo  path  string  true  "Número de orden"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{orderNo}/next-statuses [get]
func (h *OrderHandler) NextStatuses(c *fiber.Ctx) error {
	orderNo := c.Params("orderNo")
	next, err := h.sm.NextStatuses(c.Context(), orderNo)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"order_no": orderNo, "next": dto.StatusNames(next)})
}

func parseTarget(name string) (entity.OrderStatus, error) {
	st, ok := entity.ParseOrderStatus(name)
	if !ok {
		return 0, fmt.Errorf("estado destino desconocido %q: %w", name, domain.ErrInvalidInput)
	}
	return st, nil
}
