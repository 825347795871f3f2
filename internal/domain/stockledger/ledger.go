// Package stockledger reconstruye, a partir del log de operaciones de una orden,
// qué unidades siguen reservadas por SKU. El log es la única fuente de verdad:
// Confirm y Release nunca reciben la lista de líneas, la derivan de aquí.
package stockledger

import (
	"sort"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// Position acumulado de operaciones de una orden sobre un SKU.
type Position struct {
	SkuID      int64
	Reserved   int
	Confirmed  int
	Released   int
	RolledBack int
	Restored   int
}

// Outstanding unidades reservadas aún no consumidas (ni confirmadas, ni liberadas, ni revertidas).
func (p Position) Outstanding() int {
	return p.Reserved - p.Confirmed - p.Released - p.RolledBack
}

// Replay recorre las entradas en orden de inserción y devuelve una posición por SKU
// ordenada por SkuID. Falla con ErrStockInconsistency si alguna entrada consume más
// de lo que había reservado (o repone más de lo confirmado) en ese punto del log.
func Replay(entries []*entity.StockOperationLog) ([]Position, error) {
	bySku := make(map[int64]*Position)
	for _, e := range entries {
		p, ok := bySku[e.SkuID]
		if !ok {
			p = &Position{SkuID: e.SkuID}
			bySku[e.SkuID] = p
		}
		switch e.Operation {
		case entity.StockOpReserve:
			p.Reserved += e.Quantity
		case entity.StockOpConfirm, entity.StockOpRelease, entity.StockOpRollback:
			if e.Quantity > p.Outstanding() {
				return nil, &domain.StockError{SkuID: e.SkuID, Required: e.Quantity, Available: p.Outstanding(), Err: domain.ErrStockInconsistency}
			}
			switch e.Operation {
			case entity.StockOpConfirm:
				p.Confirmed += e.Quantity
			case entity.StockOpRelease:
				p.Released += e.Quantity
			default:
				p.RolledBack += e.Quantity
			}
		case entity.StockOpRestore:
			if p.Restored+e.Quantity > p.Confirmed {
				return nil, &domain.StockError{SkuID: e.SkuID, Required: e.Quantity, Available: p.Confirmed - p.Restored, Err: domain.ErrStockInconsistency}
			}
			p.Restored += e.Quantity
		}
	}
	out := make([]Position, 0, len(bySku))
	for _, p := range bySku {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkuID < out[j].SkuID })
	return out, nil
}

// Outstanding filtra las posiciones con reserva pendiente.
func Outstanding(positions []Position) []Position {
	var out []Position
	for _, p := range positions {
		if p.Outstanding() > 0 {
			out = append(out, p)
		}
	}
	return out
}

// AnyConfirmed indica si la orden ya convirtió alguna reserva en descuento.
func AnyConfirmed(positions []Position) bool {
	for _, p := range positions {
		if p.Confirmed > 0 {
			return true
		}
	}
	return false
}

// AnyRestored indica si la orden ya repuso stock por reembolso.
func AnyRestored(positions []Position) bool {
	for _, p := range positions {
		if p.Restored > 0 {
			return true
		}
	}
	return false
}
