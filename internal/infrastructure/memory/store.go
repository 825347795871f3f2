// Package memory implementa los puertos de almacenamiento en proceso.
// Sirve como driver de desarrollo (DB_DRIVER=memory) y como backend de pruebas.
// Las transacciones se serializan: una sola a la vez, sobre una copia del estado
// que se publica al hacer commit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

type state struct {
	stocks     map[int64]entity.SkuStock
	stockLogs  []entity.StockOperationLog
	orders     map[string]entity.Order
	statusLogs []entity.OrderStatusLog
	logSeq     int64
	orderSeq   int64
	statusSeq  int64
}

func newState() *state {
	return &state{
		stocks: make(map[int64]entity.SkuStock),
		orders: make(map[string]entity.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		stocks:     make(map[int64]entity.SkuStock, len(s.stocks)),
		stockLogs:  s.stockLogs[:len(s.stockLogs):len(s.stockLogs)],
		orders:     make(map[string]entity.Order, len(s.orders)),
		statusLogs: s.statusLogs[:len(s.statusLogs):len(s.statusLogs)],
		logSeq:     s.logSeq,
		orderSeq:   s.orderSeq,
		statusSeq:  s.statusSeq,
	}
	for k, v := range s.stocks {
		c.stocks[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	return c
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return o
}

// Store estado compartido más el semáforo de transacciones.
type Store struct {
	sem chan struct{}

	mu        sync.RWMutex // protege committed y los ganchos de prueba
	committed *state
	failVer   map[int64]int
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		sem:       make(chan struct{}, 1),
		committed: newState(),
		failVer:   make(map[int64]int),
	}
}

// Run ejecuta fn en una transacción exclusiva. Commit si fn no retorna error.
// Esperar el turno respeta ctx: si vence, devuelve ErrStorageTimeout.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return s.runState(ctx, func(work *state) error {
		return fn(s.repositories(work))
	})
}

func (s *Store) runState(ctx context.Context, fn func(work *state) error) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, ctx.Err())
	}
	defer func() { <-s.sem }()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageTimeout, err)
	}
	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// Repositories repositorios fuera de transacción: lecturas sobre el estado confirmado,
// escrituras en una transacción propia.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(nil)
}

func (s *Store) repositories(tx *state) repository.Repositories {
	return repository.Repositories{
		Stock:     &stockRepo{store: s, tx: tx},
		StockLog:  &stockLogRepo{store: s, tx: tx},
		Orders:    &orderRepo{store: s, tx: tx},
		StatusLog: &statusLogRepo{store: s, tx: tx},
	}
}

// FailNextVersionCheck hace que la próxima actualización condicionada del SKU
// no afecte filas, como si otro escritor hubiera cambiado la versión.
func (s *Store) FailNextVersionCheck(skuID int64) {
	s.mu.Lock()
	s.failVer[skuID]++
	s.mu.Unlock()
}

func (s *Store) consumeVersionFailure(skuID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failVer[skuID] == 0 {
		return false
	}
	s.failVer[skuID]--
	return true
}

// PutStock sobrescribe la fila de un SKU sin pasar por el log (carga inicial y ajustes de prueba).
func (s *Store) PutStock(row entity.SkuStock) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.committed.clone()
	next.stocks[row.SkuID] = row
	s.committed = next
}

// read ejecuta fn sobre la tx si existe, si no sobre el estado confirmado.
func (s *Store) read(tx *state, fn func(st *state)) {
	if tx != nil {
		fn(tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write ejecuta fn sobre la tx si existe, si no en una transacción propia.
func (s *Store) write(ctx context.Context, tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.runState(ctx, fn)
}
