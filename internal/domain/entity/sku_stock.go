package entity

import "time"

// SkuStock representa los contadores de stock de un SKU (variante vendible).
// Invariante: 0 <= ReservedStock <= Stock. Version aumenta con cada escritura.
type SkuStock struct {
	SkuID         int64
	Stock         int // unidades propias
	ReservedStock int // unidades retenidas por órdenes sin confirmar
	Version       int64
	UpdatedAt     time.Time
}

// Available devuelve las unidades que pueden reservarse.
func (s *SkuStock) Available() int {
	return s.Stock - s.ReservedStock
}

// Valid verifica el invariante de contadores.
func (s *SkuStock) Valid() bool {
	return s.ReservedStock >= 0 && s.ReservedStock <= s.Stock
}
