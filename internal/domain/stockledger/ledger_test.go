package stockledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/stockledger"
)

func entry(sku int64, op entity.StockOperation, qty int) *entity.StockOperationLog {
	return &entity.StockOperationLog{SkuID: sku, Operation: op, Quantity: qty, OrderNo: "ORD1"}
}

func TestReplay_ReservaPendiente(t *testing.T) {
	positions, err := stockledger.Replay([]*entity.StockOperationLog{
		entry(2, entity.StockOpReserve, 3),
		entry(1, entity.StockOpReserve, 7),
	})
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, int64(1), positions[0].SkuID, "las posiciones deben salir ordenadas por SKU")
	assert.Equal(t, 7, positions[0].Outstanding())
	assert.Equal(t, 3, positions[1].Outstanding())
	assert.Len(t, stockledger.Outstanding(positions), 2)
	assert.False(t, stockledger.AnyConfirmed(positions))
}

func TestReplay_ConfirmYReleaseConsumenReserva(t *testing.T) {
	positions, err := stockledger.Replay([]*entity.StockOperationLog{
		entry(1, entity.StockOpReserve, 7),
		entry(2, entity.StockOpReserve, 2),
		entry(1, entity.StockOpConfirm, 7),
		entry(2, entity.StockOpRollback, 2),
	})
	require.NoError(t, err)
	assert.Empty(t, stockledger.Outstanding(positions))
	assert.True(t, stockledger.AnyConfirmed(positions))
}

func TestReplay_ConsumoSinReservaEsInconsistencia(t *testing.T) {
	cases := map[string][]*entity.StockOperationLog{
		"release sin reserve": {entry(1, entity.StockOpRelease, 1)},
		"confirm mayor":       {entry(1, entity.StockOpReserve, 2), entry(1, entity.StockOpConfirm, 3)},
		"doble consumo":       {entry(1, entity.StockOpReserve, 2), entry(1, entity.StockOpConfirm, 2), entry(1, entity.StockOpRelease, 2)},
		"restore sin confirm": {entry(1, entity.StockOpReserve, 2), entry(1, entity.StockOpRestore, 2)},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := stockledger.Replay(entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrStockInconsistency))
			var se *domain.StockError
			assert.True(t, errors.As(err, &se))
			assert.Equal(t, int64(1), se.SkuID)
		})
	}
}

func TestReplay_RestoreTrasConfirm(t *testing.T) {
	positions, err := stockledger.Replay([]*entity.StockOperationLog{
		entry(1, entity.StockOpReserve, 4),
		entry(1, entity.StockOpConfirm, 4),
		entry(1, entity.StockOpRestore, 4),
	})
	require.NoError(t, err)
	assert.True(t, stockledger.AnyRestored(positions))
	assert.Equal(t, 0, positions[0].Outstanding())
}
