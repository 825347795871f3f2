package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/application/stock"
)

// Roles con permiso para operaciones administrativas sobre stock y órdenes.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleService  = "service"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock     *stock.Coordinator
	Orders    *order.StateMachine
	JWTSecret string
	// Metrics handler de Prometheus; nil deja /metrics sin registrar.
	Metrics nethttp.Handler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	// privileged mueve stock ya reservado (confirmar, liberar, transicionar); writers además reserva y crea órdenes.
	privileged := RequireRole(RoleAdmin, RoleOperator)
	writers := RequireRole(RoleAdmin, RoleOperator, RoleService)

	// Stock
	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock)
	stockGroup.Post("/reserve", writers, stockHandler.Reserve)
	stockGroup.Post("/confirm/:orderNo", privileged, stockHandler.Confirm)
	stockGroup.Post("/release/:orderNo", privileged, stockHandler.Release)
	stockGroup.Post("/check", stockHandler.CheckAvailability)
	stockGroup.Get("/logs", stockHandler.ListLogs)
	stockGroup.Get("/info/:skuId", stockHandler.GetSkuStock)

	// Orders
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Orders)
	orders.Post("/", writers, orderHandler.Create)
	orders.Post("/transitions/batch", privileged, orderHandler.BatchTransition)
	orders.Get("/:orderNo", orderHandler.Get)
	orders.Post("/:orderNo/transitions", privileged, orderHandler.Transition)
	orders.Get("/:orderNo/transitions", orderHandler.History)
	orders.Get("/:orderNo/next-statuses", orderHandler.NextStatuses)
}
