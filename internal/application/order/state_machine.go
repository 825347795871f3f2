package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/orderflow"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// Valores por defecto de Options.
const (
	DefaultPaymentWindow    = 24 * time.Hour
	DefaultBatchConcurrency = 8
	DefaultTxTimeout        = 10 * time.Second

	// ReasonPaymentTimeout motivo registrado al cancelar órdenes vencidas.
	ReasonPaymentTimeout = "payment timeout"
)

// Options parámetros de la máquina de estados.
type Options struct {
	PaymentWindow    time.Duration // plazo de pago desde la creación
	BatchConcurrency int           // transiciones simultáneas en BatchTransition
	TxTimeout        time.Duration
}

func (o Options) withDefaults() Options {
	if o.PaymentWindow <= 0 {
		o.PaymentWindow = DefaultPaymentWindow
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = DefaultBatchConcurrency
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = DefaultTxTimeout
	}
	return o
}

// TransitionRequest solicitud de cambio de estado de una orden.
type TransitionRequest struct {
	OrderNo    string
	Target     entity.OrderStatus
	Reason     string
	OperatorID *int64
}

// TransitionResult resultado por orden de BatchTransition.
type TransitionResult struct {
	OrderNo string
	From    entity.OrderStatus
	To      entity.OrderStatus
	Err     error
}

// OK indica si la transición se aplicó.
func (r TransitionResult) OK() bool { return r.Err == nil }

// StateMachine aplica transiciones de estado y sus efectos sobre el stock
// en una misma unidad de trabajo.
type StateMachine struct {
	txRunner   TxRunner
	orders     repository.OrderRepository
	statusLogs repository.OrderStatusLogRepository
	stock      StockCoordinator
	publisher  StatusEventPublisher
	metrics    MetricsRecorder
	log        zerolog.Logger
	opts       Options
	now        func() time.Time
}

// NewStateMachine construye la máquina de estados. orders y statusLogs (atados al pool) solo se usan para lecturas.
func NewStateMachine(
	txRunner TxRunner,
	orders repository.OrderRepository,
	statusLogs repository.OrderStatusLogRepository,
	stockCoord StockCoordinator,
	log zerolog.Logger,
	opts Options,
) *StateMachine {
	return &StateMachine{
		txRunner:   txRunner,
		orders:     orders,
		statusLogs: statusLogs,
		stock:      stockCoord,
		metrics:    noopMetrics{},
		log:        log.With().Str("component", "order_state_machine").Logger(),
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

// WithPublisher registra el publicador de eventos de estado.
func (m *StateMachine) WithPublisher(p StatusEventPublisher) *StateMachine {
	m.publisher = p
	return m
}

// WithMetrics registra el recolector de métricas.
func (m *StateMachine) WithMetrics(r MetricsRecorder) *StateMachine {
	if r != nil {
		m.metrics = r
	}
	return m
}

// Transition lee la orden bajo bloqueo de fila, valida la arista, ejecuta el efecto sobre
// el stock y persiste el nuevo estado con su entrada de historial. Cualquier fallo revierte todo.
func (m *StateMachine) Transition(ctx context.Context, req TransitionRequest) (*entity.OrderStatusLog, error) {
	if req.OrderNo == "" || !req.Target.Valid() {
		return nil, domain.ErrInvalidInput
	}

	var (
		from  entity.OrderStatus
		entry *entity.OrderStatusLog
	)
	txCtx, cancel := context.WithTimeout(ctx, m.opts.TxTimeout)
	defer cancel()
	err := m.txRunner.Run(txCtx, func(repos repository.Repositories) error {
		o, err := repos.Orders.GetByOrderNoForUpdate(txCtx, req.OrderNo)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("orden %s: %w", req.OrderNo, domain.ErrNotFound)
		}
		from = o.Status

		effect, ok := orderflow.Lookup(o.Status, req.Target)
		if !ok {
			return &domain.TransitionError{OrderNo: o.OrderNo, From: o.Status.String(), To: req.Target.String()}
		}
		if err := m.applyEffect(txCtx, repos, effect, o, req.OperatorID); err != nil {
			return fmt.Errorf("%s de la orden %s: %w", effect, o.OrderNo, err)
		}

		now := m.now()
		if err := repos.Orders.UpdateStatus(txCtx, o.OrderNo, req.Target, now); err != nil {
			return err
		}
		entry = &entity.OrderStatusLog{
			OrderNo:    o.OrderNo,
			FromStatus: o.Status,
			ToStatus:   req.Target,
			Reason:     req.Reason,
			OperatorID: req.OperatorID,
			CreatedAt:  now,
		}
		return repos.StatusLog.Create(txCtx, entry)
	})
	m.metrics.ObserveTransition(from.String(), req.Target.String(), outcome(err))
	if err != nil {
		ev := m.log.Warn()
		if errors.Is(err, domain.ErrStockInconsistency) {
			ev = m.log.Error()
		}
		ev.Err(err).Str("order_no", req.OrderNo).Str("to", req.Target.String()).Msg("transición rechazada")
		return nil, err
	}

	m.log.Info().Str("order_no", req.OrderNo).Str("from", from.String()).
		Str("to", req.Target.String()).Str("reason", req.Reason).Msg("transición aplicada")
	m.publish(ctx, StatusEvent{
		OrderNo:    entry.OrderNo,
		From:       entry.FromStatus,
		To:         entry.ToStatus,
		Reason:     entry.Reason,
		OperatorID: entry.OperatorID,
		OccurredAt: entry.CreatedAt,
	})
	return entry, nil
}

func (m *StateMachine) applyEffect(ctx context.Context, repos repository.Repositories, effect orderflow.SideEffect, o *entity.Order, operatorID *int64) error {
	switch effect {
	case orderflow.EffectConfirmStock:
		return m.stock.ConfirmInTx(ctx, repos, o.OrderNo, operatorID)
	case orderflow.EffectReleaseStock:
		return m.stock.ReleaseInTx(ctx, repos, o.OrderNo, operatorID)
	case orderflow.EffectRestoreStock:
		return m.stock.RestoreInTx(ctx, repos, o.OrderNo, o.Items, operatorID)
	}
	return nil
}

// BatchTransition aplica la misma transición a cada orden por separado.
// No es atómico entre órdenes: el fallo de una no afecta a las demás.
func (m *StateMachine) BatchTransition(ctx context.Context, orderNos []string, target entity.OrderStatus, reason string, operatorID *int64) []TransitionResult {
	results := make([]TransitionResult, len(orderNos))
	var g errgroup.Group
	g.SetLimit(m.opts.BatchConcurrency)
	for i, orderNo := range orderNos {
		i, orderNo := i, orderNo
		g.Go(func() error {
			res := TransitionResult{OrderNo: orderNo, To: target}
			entry, err := m.Transition(ctx, TransitionRequest{OrderNo: orderNo, Target: target, Reason: reason, OperatorID: operatorID})
			if err != nil {
				res.Err = err
			} else {
				res.From = entry.FromStatus
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ExpirePending cancela hasta limit órdenes en PendingPayment cuyo plazo de pago venció antes de now.
func (m *StateMachine) ExpirePending(ctx context.Context, now time.Time, limit int) ([]TransitionResult, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidInput
	}
	orderNos, err := m.orders.ListExpired(ctx, entity.OrderPendingPayment, now, limit)
	if err != nil {
		return nil, fmt.Errorf("listar órdenes vencidas: %w", err)
	}
	if len(orderNos) == 0 {
		return nil, nil
	}
	results := m.BatchTransition(ctx, orderNos, entity.OrderCancelled, ReasonPaymentTimeout, nil)
	cancelled := 0
	for _, r := range results {
		if r.OK() {
			cancelled++
		}
	}
	m.log.Info().Int("found", len(orderNos)).Int("cancelled", cancelled).Msg("órdenes vencidas procesadas")
	return results, nil
}

// Get devuelve la orden con sus líneas.
func (m *StateMachine) Get(ctx context.Context, orderNo string) (*entity.Order, error) {
	if orderNo == "" {
		return nil, domain.ErrInvalidInput
	}
	o, err := m.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("orden %s: %w", orderNo, domain.ErrNotFound)
	}
	return o, nil
}

// GetTransitionHistory historial de transiciones en orden cronológico.
func (m *StateMachine) GetTransitionHistory(ctx context.Context, orderNo string) ([]*entity.OrderStatusLog, error) {
	if _, err := m.Get(ctx, orderNo); err != nil {
		return nil, err
	}
	return m.statusLogs.ListByOrderNo(ctx, orderNo)
}

// NextStatuses estados a los que puede pasar la orden desde su estado actual.
func (m *StateMachine) NextStatuses(ctx context.Context, orderNo string) ([]entity.OrderStatus, error) {
	o, err := m.Get(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	return orderflow.NextStatuses(o.Status), nil
}

// ValidateTransition comprueba, sin bloquear ni escribir, si la transición sería legal ahora.
func (m *StateMachine) ValidateTransition(ctx context.Context, orderNo string, target entity.OrderStatus) error {
	o, err := m.Get(ctx, orderNo)
	if err != nil {
		return err
	}
	if !orderflow.CanTransition(o.Status, target) {
		return &domain.TransitionError{OrderNo: orderNo, From: o.Status.String(), To: target.String()}
	}
	return nil
}

func (m *StateMachine) publish(ctx context.Context, ev StatusEvent) {
	if m.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.publisher.PublishStatusChanged(pctx, ev); err != nil {
		m.log.Warn().Err(err).Str("order_no", ev.OrderNo).Msg("publicar evento de estado")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrStockInconsistency):
		return "inconsistency"
	case domain.IsRetryable(err):
		return "retry"
	}
	return "error"
}
