package dto

import (
	"time"

	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// StockItemRequest línea SKU/cantidad de un lote.
type StockItemRequest struct {
	SkuID    int64 `json:"sku_id"`
	Quantity int   `json:"quantity"`
}

// ReserveRequest body de POST /api/stock/reserve.
type ReserveRequest struct {
	OrderNo string             `json:"order_no"`
	Items   []StockItemRequest `json:"items"`
}

// CheckAvailabilityRequest body de POST /api/stock/check.
type CheckAvailabilityRequest struct {
	Items []StockItemRequest `json:"items"`
}

// ToReserveItems convierte las líneas al tipo del coordinador.
func ToReserveItems(in []StockItemRequest) []stock.ReserveItem {
	out := make([]stock.ReserveItem, 0, len(in))
	for _, it := range in {
		out = append(out, stock.ReserveItem{SkuID: it.SkuID, Quantity: it.Quantity})
	}
	return out
}

// ItemFailureDTO SKU que impidió la reserva.
type ItemFailureDTO struct {
	SkuID     int64  `json:"sku_id"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// ReservationResponse resultado de una reserva.
type ReservationResponse struct {
	OrderNo    string             `json:"order_no"`
	Reserved   []StockItemRequest `json:"reserved"`
	RolledBack []StockItemRequest `json:"rolled_back,omitempty"`
	Failed     []ItemFailureDTO   `json:"failed,omitempty"`
}

func ToReservationResponse(r *stock.ReservationResult) ReservationResponse {
	out := ReservationResponse{
		OrderNo:    r.OrderNo,
		Reserved:   fromReserveItems(r.Reserved),
		RolledBack: fromReserveItems(r.RolledBack),
	}
	for _, f := range r.Failed {
		reason := ""
		if f.Err != nil {
			reason = f.Err.Error()
		}
		out.Failed = append(out.Failed, ItemFailureDTO{SkuID: f.SkuID, Quantity: f.Quantity, Available: f.Available, Reason: reason})
	}
	return out
}

func fromReserveItems(items []stock.ReserveItem) []StockItemRequest {
	if len(items) == 0 {
		return nil
	}
	out := make([]StockItemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, StockItemRequest{SkuID: it.SkuID, Quantity: it.Quantity})
	}
	return out
}

// ItemAvailabilityDTO disponibilidad de un SKU.
type ItemAvailabilityDTO struct {
	SkuID      int64  `json:"sku_id"`
	Requested  int    `json:"requested"`
	Stock      int    `json:"stock"`
	Reserved   int    `json:"reserved"`
	Available  int    `json:"available"`
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason,omitempty"`
}

// AvailabilityResponse informe de CheckAvailability.
type AvailabilityResponse struct {
	AllAvailable bool                  `json:"all_available"`
	Items        []ItemAvailabilityDTO `json:"items"`
}

func ToAvailabilityResponse(r *stock.AvailabilityReport) AvailabilityResponse {
	out := AvailabilityResponse{AllAvailable: r.AllAvailable, Items: make([]ItemAvailabilityDTO, 0, len(r.Items))}
	for _, it := range r.Items {
		out.Items = append(out.Items, ItemAvailabilityDTO{
			SkuID:      it.SkuID,
			Requested:  it.Requested,
			Stock:      it.Stock,
			Reserved:   it.Reserved,
			Available:  it.Available,
			Sufficient: it.Sufficient,
			Reason:     it.Reason,
		})
	}
	return out
}

// StockLogDTO entrada del log de operaciones de stock.
type StockLogDTO struct {
	ID             int64     `json:"id"`
	SkuID          int64     `json:"sku_id"`
	Operation      string    `json:"operation"`
	Quantity       int       `json:"quantity"`
	BeforeStock    int       `json:"before_stock"`
	AfterStock     int       `json:"after_stock"`
	BeforeReserved int       `json:"before_reserved"`
	AfterReserved  int       `json:"after_reserved"`
	OrderNo        string    `json:"order_no,omitempty"`
	OperatorID     *int64    `json:"operator_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToStockLogs(list []*entity.StockOperationLog) []StockLogDTO {
	out := make([]StockLogDTO, 0, len(list))
	for _, e := range list {
		out = append(out, StockLogDTO{
			ID:             e.ID,
			SkuID:          e.SkuID,
			Operation:      e.Operation.String(),
			Quantity:       e.Quantity,
			BeforeStock:    e.BeforeStock,
			AfterStock:     e.AfterStock,
			BeforeReserved: e.BeforeReserved,
			AfterReserved:  e.AfterReserved,
			OrderNo:        e.OrderNo,
			OperatorID:     e.OperatorID,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}

// SkuStockResponse contadores actuales de un SKU y sus últimas operaciones.
type SkuStockResponse struct {
	SkuID      int64         `json:"sku_id"`
	Stock      int           `json:"stock"`
	Reserved   int           `json:"reserved"`
	Available  int           `json:"available"`
	Version    int64         `json:"version"`
	UpdatedAt  time.Time     `json:"updated_at"`
	RecentLogs []StockLogDTO `json:"recent_logs"`
}

func ToSkuStockResponse(info *stock.SkuStockInfo) SkuStockResponse {
	s := info.Stock
	return SkuStockResponse{
		SkuID:      s.SkuID,
		Stock:      s.Stock,
		Reserved:   s.ReservedStock,
		Available:  s.Available(),
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
		RecentLogs: ToStockLogs(info.RecentLogs),
	}
}
