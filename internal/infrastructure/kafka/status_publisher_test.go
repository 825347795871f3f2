package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestStatusPublisher_Mensaje(t *testing.T) {
	w := &captureWriter{}
	p := NewStatusPublisher(w)
	op := int64(5)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishStatusChanged(context.Background(), order.StatusEvent{
		OrderNo: "ORD-1", From: entity.OrderPendingPayment, To: entity.OrderPaid,
		Reason: "pago", OperatorID: &op, OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("ORD-1"), w.msgs[0].Key)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "OrderStatusChanged", body["type"])
	assert.Equal(t, "PENDING_PAYMENT", body["from"])
	assert.Equal(t, "PAID", body["to"])
	assert.Equal(t, float64(5), body["operator_id"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["occurred_at"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestStatusPublisher_ErrorDelBroker(t *testing.T) {
	w := &captureWriter{err: errors.New("leader not available")}
	err := NewStatusPublisher(w).PublishStatusChanged(context.Background(), order.StatusEvent{OrderNo: "ORD-1"})
	assert.ErrorContains(t, err, "leader not available")
}
