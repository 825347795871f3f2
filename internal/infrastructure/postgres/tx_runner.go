package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// Ensure TxRunner implements stock.TxRunner and order.TxRunner.
var (
	_ stock.TxRunner = (*TxRunner)(nil)
	_ order.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout acota la espera por bloqueos de fila
// (SET LOCAL lock_timeout); 0 deja el valor del servidor.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros: el valor se formatea como entero en milisegundos.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			return wrap("set lock_timeout", err)
		}
	}

	if err := fn(Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// Repositories repositorios atados a q (pool para lecturas, tx dentro de Run).
func Repositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Stock:     NewStockRepository(q),
		StockLog:  NewStockOperationLogRepository(q),
		Orders:    NewOrderRepository(q),
		StatusLog: NewOrderStatusLogRepository(q),
	}
}
