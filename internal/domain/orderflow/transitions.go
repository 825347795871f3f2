// Package orderflow contiene la tabla de transiciones de estado de una orden
// y el efecto lateral sobre el stock que dispara cada arista.
package orderflow

import (
	"sort"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// SideEffect efecto sobre el stock asociado a una transición.
type SideEffect int

const (
	EffectNone SideEffect = iota
	EffectConfirmStock
	EffectReleaseStock
	EffectRestoreStock
)

func (e SideEffect) String() string {
	switch e {
	case EffectConfirmStock:
		return "confirm_stock"
	case EffectReleaseStock:
		return "release_stock"
	case EffectRestoreStock:
		return "restore_stock"
	}
	return "none"
}

// Pares no listados se rechazan. Cancelled, Completed y Refunded no tienen salidas.
var table = map[entity.OrderStatus]map[entity.OrderStatus]SideEffect{
	entity.OrderPendingPayment: {
		entity.OrderPaid:      EffectConfirmStock,
		entity.OrderCancelled: EffectReleaseStock,
	},
	entity.OrderPaid: {
		entity.OrderPendingShipment: EffectNone,
		entity.OrderShipped:         EffectNone,
		entity.OrderRefunding:       EffectNone,
	},
	entity.OrderPendingShipment: {
		entity.OrderShipped:   EffectNone,
		entity.OrderRefunding: EffectNone,
	},
	entity.OrderShipped: {
		entity.OrderCompleted: EffectNone,
		entity.OrderRefunding: EffectNone,
	},
	entity.OrderRefunding: {
		entity.OrderRefunded:  EffectRestoreStock,
		entity.OrderCompleted: EffectNone, // reembolso rechazado
	},
}

// Lookup devuelve el efecto de la arista from -> to y si la arista existe.
func Lookup(from, to entity.OrderStatus) (SideEffect, bool) {
	edges, ok := table[from]
	if !ok {
		return EffectNone, false
	}
	eff, ok := edges[to]
	return eff, ok
}

// CanTransition indica si from -> to es legal.
func CanTransition(from, to entity.OrderStatus) bool {
	_, ok := Lookup(from, to)
	return ok
}

// NextStatuses estados alcanzables desde from, ordenados por código.
func NextStatuses(from entity.OrderStatus) []entity.OrderStatus {
	out := make([]entity.OrderStatus, 0, len(table[from]))
	for to := range table[from] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal estados sin transiciones de salida.
func IsTerminal(s entity.OrderStatus) bool {
	return len(table[s]) == 0
}
