package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/dto"
	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// StockHandler expone el coordinador de stock (protegido).
type StockHandler struct {
	coord *stock.Coordinator
}

// NewStockHandler construye el handler.
func NewStockHandler(coord *stock.Coordinator) *StockHandler {
	return &StockHandler{coord: coord}
}

// Reserve godoc
// @Summary      Reservar stock para una orden
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ReserveRequest  true  "order_no e items (sku_id, quantity)"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/reserve [post]
func (h *StockHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	res, err := h.coord.Reserve(c.Context(), dto.ToReserveItems(in.Items), in.OrderNo)
	if err != nil {
		status, body := errorStatus(err)
		if res != nil && len(res.Failed) > 0 {
			return c.Status(status).JSON(fiber.Map{
				"code":    body.Code,
				"message": body.Message,
				"result":  dto.ToReservationResponse(res),
			})
		}
		return c.Status(status).JSON(body)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationResponse(res))
}

// Confirm godoc
// @Summary      Confirmar (descontar) el stock reservado de una orden
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        orderNo  path  string  true  "Número de orden"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stock/confirm/{orderNo} [post]
func (h *StockHandler) Confirm(c *fiber.Ctx) error {
	orderNo := c.Params("orderNo")
	if err := h.coord.Confirm(c.Context(), orderNo); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"order_no": orderNo, "message": "stock confirmado"})
}

// Release godoc
// @Summary      Liberar el stock reservado de una orden
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        orderNo  path  string  true  "Número de orden"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/release/{orderNo} [post]
func (h *StockHandler) Release(c *fiber.Ctx) error {
	orderNo := c.Params("orderNo")
	if err := h.coord.Release(c.Context(), orderNo); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"order_no": orderNo, "message": "stock liberado"})
}

// CheckAvailability godoc
// @Summary      Consultar disponibilidad sin reservar
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CheckAvailabilityRequest  true  "items"
// @Success      200   {object}  dto.AvailabilityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/check [post]
func (h *StockHandler) CheckAvailability(c *fiber.Ctx) error {
	var in dto.CheckAvailabilityRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	report, err := h.coord.CheckAvailability(c.Context(), dto.ToReserveItems(in.Items))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToAvailabilityResponse(report))
}

// ListLogs godoc
// @Summary      Historial de operaciones de stock
// @Description  Requiere order_no o sku_id. Con order_no se ordena cronológicamente.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        order_no   query  string  false  "Número de orden"
// @Param        sku_id     query  int     false  "SKU"
// @Param        operation  query  string  false  "RESERVE | CONFIRM | RELEASE | ROLLBACK | RESTORE"
// @Param        limit      query  int     false  "Máximo 100"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/logs [get]
func (h *StockHandler) ListLogs(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.Normalize()
	f := stock.HistoryFilter{
		OrderNo: c.Query("order_no"),
		SkuID:   int64(c.QueryInt("sku_id")),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	if name := c.Query("operation"); name != "" {
		op, ok := entity.ParseStockOperation(name)
		if !ok {
			return badRequest(c, "operation desconocida: "+name)
		}
		f.Operation = op
	}
	list, err := h.coord.GetStockOperationHistory(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"items": dto.ToStockLogs(list),
		"page":  dto.PageResponse{Limit: f.Limit, Offset: f.Offset, Count: len(list)},
	})
}

// GetSkuStock godoc
// @Summary      Contadores de stock de un SKU y sus últimas operaciones
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        skuId  path  int  true  "SKU"
// @Success      200  {object}  dto.SkuStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/info/{skuId} [get]
func (h *StockHandler) GetSkuStock(c *fiber.Ctx) error {
	skuID, err := c.ParamsInt("skuId")
	if err != nil || skuID <= 0 {
		return badRequest(c, "skuId inválido")
	}
	info, err := h.coord.GetSkuStockInfo(c.Context(), int64(skuID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToSkuStockResponse(info))
}
