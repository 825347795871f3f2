package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/infrastructure/memory"
	"github.com/jhoicas/stock-engine/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-engine/internal/interfaces/http"
)

// buildAPI monta el router completo sobre el almacén en memoria.
func buildAPI(t *testing.T, rows ...entity.SkuStock) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	for _, r := range rows {
		store.PutStock(r)
	}
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	repos := store.Repositories()
	coord := stock.NewCoordinator(store, repos.Stock, repos.StockLog, nil, zerolog.Nop(), stock.Options{}).WithMetrics(rec)
	sm := order.NewStateMachine(store, repos.Orders, repos.StatusLog, coord, zerolog.Nop(), order.Options{}).WithMetrics(rec)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Stock:     coord,
		Orders:    sm,
		JWTSecret: testJWTSecret,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return app
}

// call ejecuta la petición con el rol indicado y decodifica el cuerpo JSON en out (si no es nil).
func call(t *testing.T, app *fiber.App, role, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func items(pairs ...int) []map[string]any {
	var out []map[string]any
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]any{"sku_id": pairs[i], "quantity": pairs[i+1]})
	}
	return out
}

func TestStockAPI_ReservarConfirmarYConsultar(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10}, entity.SkuStock{SkuID: 2, Stock: 5})

	var res struct {
		OrderNo  string `json:"order_no"`
		Reserved []struct {
			SkuID    int64 `json:"sku_id"`
			Quantity int   `json:"quantity"`
		} `json:"reserved"`
	}
	status := call(t, app, "service", http.MethodPost, "/api/stock/reserve",
		map[string]any{"order_no": "O-1", "items": items(1, 3, 2, 2)}, &res)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "O-1", res.OrderNo)
	assert.Len(t, res.Reserved, 2)

	var info struct {
		Stock      int `json:"stock"`
		Reserved   int `json:"reserved"`
		Available  int `json:"available"`
		RecentLogs []struct {
			Operation string `json:"operation"`
		} `json:"recent_logs"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodGet, "/api/stock/info/1", nil, &info))
	assert.Equal(t, 10, info.Stock)
	assert.Equal(t, 3, info.Reserved)
	assert.Equal(t, 7, info.Available)
	require.Len(t, info.RecentLogs, 1)
	assert.Equal(t, "RESERVE", info.RecentLogs[0].Operation)

	// service puede reservar pero no confirmar.
	var e errBody
	assert.Equal(t, http.StatusForbidden, call(t, app, "service", http.MethodPost, "/api/stock/confirm/O-1", nil, &e))
	assert.Equal(t, "FORBIDDEN", e.Code)

	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodPost, "/api/stock/confirm/O-1", nil, nil))

	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodGet, "/api/stock/info/1", nil, &info))
	assert.Equal(t, 7, info.Stock)
	assert.Equal(t, 0, info.Reserved)

	var logs struct {
		Items []struct {
			SkuID     int64  `json:"sku_id"`
			Operation string `json:"operation"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodGet, "/api/stock/logs?order_no=O-1", nil, &logs))
	require.Len(t, logs.Items, 4)
	assert.Equal(t, "RESERVE", logs.Items[0].Operation)
	assert.Equal(t, "CONFIRM", logs.Items[3].Operation)

	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodGet, "/api/stock/logs?order_no=O-1&operation=CONFIRM", nil, &logs))
	assert.Len(t, logs.Items, 2)
}

func TestStockAPI_StockInsuficienteDevuelveDetalle(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10}, entity.SkuStock{SkuID: 2, Stock: 1})

	var body struct {
		Code   string `json:"code"`
		Result struct {
			Reserved   []any `json:"reserved"`
			RolledBack []any `json:"rolled_back"`
			Failed     []struct {
				SkuID     int64 `json:"sku_id"`
				Available int   `json:"available"`
			} `json:"failed"`
		} `json:"result"`
	}
	status := call(t, app, "service", http.MethodPost, "/api/stock/reserve",
		map[string]any{"order_no": "O-2", "items": items(1, 3, 2, 2)}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	assert.Empty(t, body.Result.Reserved)
	assert.Len(t, body.Result.RolledBack, 1)
	require.Len(t, body.Result.Failed, 1)
	assert.Equal(t, int64(2), body.Result.Failed[0].SkuID)
	assert.Equal(t, 1, body.Result.Failed[0].Available)

	var report struct {
		AllAvailable bool `json:"all_available"`
		Items        []struct {
			Available  int  `json:"available"`
			Sufficient bool `json:"sufficient"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodPost, "/api/stock/check",
		map[string]any{"items": items(1, 3)}, &report))
	assert.True(t, report.AllAvailable)
	require.Len(t, report.Items, 1)
	assert.Equal(t, 10, report.Items[0].Available, "la compensación devolvió las unidades")
}

func TestStockAPI_Errores(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})

	tests := []struct {
		name         string
		role, method string
		path         string
		body         any
		status       int
		code         string
	}{
		{"sin token", "", http.MethodGet, "/api/stock/info/1", nil, http.StatusUnauthorized, "MISSING_TOKEN"},
		{"sku inexistente", "operator", http.MethodGet, "/api/stock/info/99", nil, http.StatusNotFound, "NOT_FOUND"},
		{"sku inválido", "operator", http.MethodGet, "/api/stock/info/abc", nil, http.StatusBadRequest, "INVALID_BODY"},
		{"logs sin filtro", "operator", http.MethodGet, "/api/stock/logs", nil, http.StatusBadRequest, "VALIDATION"},
		{"operación desconocida", "operator", http.MethodGet, "/api/stock/logs?sku_id=1&operation=X", nil, http.StatusBadRequest, "INVALID_BODY"},
		{"cantidad no positiva", "service", http.MethodPost, "/api/stock/reserve", map[string]any{"order_no": "O", "items": items(1, 0)}, http.StatusBadRequest, "VALIDATION"},
		{"confirmar sin reserva", "admin", http.MethodPost, "/api/stock/confirm/NADA", nil, http.StatusInternalServerError, "STOCK_INCONSISTENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errBody
			assert.Equal(t, tt.status, call(t, app, tt.role, tt.method, tt.path, tt.body, &e))
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestStockAPI_InconsistenciaNoExponeDetalle(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})
	var e errBody
	require.Equal(t, http.StatusInternalServerError, call(t, app, "admin", http.MethodPost, "/api/stock/confirm/NADA", nil, &e))
	assert.Equal(t, "error del sistema", e.Message)
}

func TestStockAPI_ReservaDuplicada(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})
	body := map[string]any{"order_no": "O-3", "items": items(1, 1)}
	require.Equal(t, http.StatusCreated, call(t, app, "service", http.MethodPost, "/api/stock/reserve", body, nil))

	var e errBody
	assert.Equal(t, http.StatusConflict, call(t, app, "service", http.MethodPost, "/api/stock/reserve", body, &e))
	assert.Equal(t, "DUPLICATE_RESERVATION", e.Code)

	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodPost, "/api/stock/release/O-3", nil, nil))
	// Liberar de nuevo no hace nada.
	assert.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodPost, "/api/stock/release/O-3", nil, nil))
}

type orderBody struct {
	OrderNo     string `json:"order_no"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
}

func createOrder(t *testing.T, app *fiber.App, orderNo string, sku, qty int) orderBody {
	t.Helper()
	var o orderBody
	status := call(t, app, "service", http.MethodPost, "/api/orders", map[string]any{
		"order_no": orderNo,
		"user_id":  5,
		"items":    []map[string]any{{"sku_id": sku, "quantity": qty, "unit_price": "2.50"}},
	}, &o)
	require.Equal(t, http.StatusCreated, status)
	return o
}

func TestOrderAPI_CicloDeVida(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})

	o := createOrder(t, app, "ORD-1", 1, 4)
	assert.Equal(t, "PENDING_PAYMENT", o.Status)
	assert.Equal(t, "10", o.TotalAmount)

	var next struct {
		Next []string `json:"next"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodGet, "/api/orders/ORD-1/next-statuses", nil, &next))
	assert.Equal(t, []string{"PAID", "CANCELLED"}, next.Next)

	var entry struct {
		From       string `json:"from"`
		To         string `json:"to"`
		OperatorID *int64 `json:"operator_id"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "operator", http.MethodPost, "/api/orders/ORD-1/transitions",
		map[string]any{"target": "PAID", "reason": "pago recibido"}, &entry))
	assert.Equal(t, "PENDING_PAYMENT", entry.From)
	assert.Equal(t, "PAID", entry.To)
	require.NotNil(t, entry.OperatorID)
	assert.Equal(t, int64(17), *entry.OperatorID)

	var e errBody
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, app, "operator", http.MethodPost, "/api/orders/ORD-1/transitions",
		map[string]any{"target": "PENDING_PAYMENT"}, &e))
	assert.Equal(t, "ILLEGAL_TRANSITION", e.Code)

	assert.Equal(t, http.StatusBadRequest, call(t, app, "operator", http.MethodPost, "/api/orders/ORD-1/transitions",
		map[string]any{"target": "LOST"}, &e))
	assert.Equal(t, "VALIDATION", e.Code)

	var history []struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Reason string `json:"reason"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodGet, "/api/orders/ORD-1/transitions", nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "pago recibido", history[0].Reason)

	var got orderBody
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodGet, "/api/orders/ORD-1", nil, &got))
	assert.Equal(t, "PAID", got.Status)

	var info struct {
		Stock    int `json:"stock"`
		Reserved int `json:"reserved"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodGet, "/api/stock/info/1", nil, &info))
	assert.Equal(t, 6, info.Stock)
	assert.Equal(t, 0, info.Reserved)

	assert.Equal(t, http.StatusNotFound, call(t, app, "service", http.MethodGet, "/api/orders/NADA/transitions", nil, &e))
}

func TestOrderAPI_TransicionEnLote(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})
	createOrder(t, app, "ORD-A", 1, 2)
	createOrder(t, app, "ORD-B", 1, 3)

	body := map[string]any{"order_nos": []string{"ORD-A", "NADA", "ORD-B"}, "target": "CANCELLED", "reason": "cancelación masiva"}

	var e errBody
	assert.Equal(t, http.StatusForbidden, call(t, app, "service", http.MethodPost, "/api/orders/transitions/batch", body, &e))

	var out struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
		Results   []struct {
			OrderNo string `json:"order_no"`
			OK      bool   `json:"ok"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "admin", http.MethodPost, "/api/orders/transitions/batch", body, &out))
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "ORD-A", out.Results[0].OrderNo)
	assert.True(t, out.Results[0].OK)
	assert.False(t, out.Results[1].OK)
	assert.NotEmpty(t, out.Results[1].Error)
	assert.True(t, out.Results[2].OK)

	var info struct {
		Reserved int `json:"reserved"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "service", http.MethodGet, "/api/stock/info/1", nil, &info))
	assert.Equal(t, 0, info.Reserved)

	assert.Equal(t, http.StatusBadRequest, call(t, app, "admin", http.MethodPost, "/api/orders/transitions/batch",
		map[string]any{"order_nos": []string{}, "target": "CANCELLED"}, &e))
}

func TestMetricsEndpoint(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})
	require.Equal(t, http.StatusCreated, call(t, app, "service", http.MethodPost, "/api/stock/reserve",
		map[string]any{"order_no": "O-M", "items": items(1, 1)}, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `stock_engine_stock_operations_total{operation="reserve",outcome="ok"} 1`)
}

func TestOrderAPI_RolesDeEscritura(t *testing.T) {
	app := buildAPI(t, entity.SkuStock{SkuID: 1, Stock: 10})
	createOrder(t, app, "ORD-9", 1, 2)

	create := map[string]any{
		"order_no": "ORD-10",
		"user_id":  5,
		"items":    []map[string]any{{"sku_id": 1, "quantity": 1, "unit_price": "1"}},
	}
	pay := map[string]any{"target": "PAID"}

	tests := []struct {
		name   string
		role   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"cliente no crea órdenes", "customer", http.MethodPost, "/api/orders", create, http.StatusForbidden, "FORBIDDEN"},
		{"cliente no confirma stock", "customer", http.MethodPost, "/api/stock/confirm/ORD-9", nil, http.StatusForbidden, "FORBIDDEN"},
		{"cliente no paga la orden", "customer", http.MethodPost, "/api/orders/ORD-9/transitions", pay, http.StatusForbidden, "FORBIDDEN"},
		{"servicio no paga la orden", "service", http.MethodPost, "/api/orders/ORD-9/transitions", pay, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errBody
			assert.Equal(t, tt.status, call(t, app, tt.role, tt.method, tt.path, tt.body, &e))
			assert.Equal(t, tt.code, e.Code)
		})
	}

	// Nada de lo rechazado tocó el stock ni el estado.
	var info struct {
		Stock    int `json:"stock"`
		Reserved int `json:"reserved"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "customer", http.MethodGet, "/api/stock/info/1", nil, &info))
	assert.Equal(t, 10, info.Stock)
	assert.Equal(t, 2, info.Reserved)
	var got orderBody
	require.Equal(t, http.StatusOK, call(t, app, "customer", http.MethodGet, "/api/orders/ORD-9", nil, &got))
	assert.Equal(t, "PENDING_PAYMENT", got.Status)

	assert.Equal(t, http.StatusCreated, call(t, app, "admin", http.MethodPost, "/api/orders", create, nil))
	assert.Equal(t, http.StatusOK, call(t, app, "admin", http.MethodPost, "/api/orders/ORD-9/transitions", pay, nil))
}
