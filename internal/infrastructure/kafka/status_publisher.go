// Package kafka publica los cambios de estado de órdenes en un tópico de Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-engine/internal/application/order"
)

var _ order.StatusEventPublisher = (*StatusPublisher)(nil)

// MessageWriter subconjunto de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter writer con clave por orden: todos los eventos de una orden van a la misma partición.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// StatusPublisher implementa order.StatusEventPublisher.
type StatusPublisher struct {
	w MessageWriter
}

// NewStatusPublisher construye el publicador sobre w.
func NewStatusPublisher(w MessageWriter) *StatusPublisher {
	return &StatusPublisher{w: w}
}

// statusChanged formato del mensaje en el tópico.
type statusChanged struct {
	Type       string    `json:"type"`
	OrderNo    string    `json:"order_no"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	OperatorID *int64    `json:"operator_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishStatusChanged serializa el evento y lo escribe con OrderNo como clave.
func (p *StatusPublisher) PublishStatusChanged(ctx context.Context, ev order.StatusEvent) error {
	payload, err := json.Marshal(statusChanged{
		Type:       "OrderStatusChanged",
		OrderNo:    ev.OrderNo,
		From:       ev.From.String(),
		To:         ev.To.String(),
		Reason:     ev.Reason,
		OperatorID: ev.OperatorID,
		OccurredAt: ev.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderNo),
		Value: payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("OrderStatusChanged")},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.OrderNo, err)
	}
	return nil
}

// Close cierra el writer subyacente.
func (p *StatusPublisher) Close() error {
	return p.w.Close()
}
