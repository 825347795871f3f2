// Package bootstrap arma los componentes del motor a partir de la configuración.
// Lo comparten cmd/api y cmd/expire-orders.
package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/application/stock"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-engine/internal/infrastructure/memory"
	"github.com/jhoicas/stock-engine/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-engine/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-engine/internal/infrastructure/redislock"
	"github.com/jhoicas/stock-engine/internal/infrastructure/zklock"
	"github.com/jhoicas/stock-engine/pkg/config"
)

// txRunner lo implementan postgres.TxRunner y memory.Store.
type txRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// Components servicios listos para usar. Close libera conexiones en orden inverso.
type Components struct {
	Stock    *stock.Coordinator
	Orders   *order.StateMachine
	Registry *prometheus.Registry

	closers []func() error
	log     zerolog.Logger
}

// Close cierra publicador, proveedor de bloqueo y almacenamiento.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warn().Err(err).Msg("cerrar componente")
		}
	}
}

// Build conecta almacenamiento, bloqueo distribuido, métricas y publicador de eventos.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Components, error) {
	c := &Components{Registry: prometheus.NewRegistry(), log: log}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(c.Registry)

	runner, repos, err := c.storage(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	locks, err := c.lockProvider(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Stock = stock.NewCoordinator(runner, repos.Stock, repos.StockLog, locks, log, stock.Options{
		LockTTL:         cfg.Stock.LockTTL,
		LockWaitTimeout: cfg.Stock.LockWaitTimeout,
		TxTimeout:       cfg.Stock.TxTimeout,
	}).WithMetrics(rec)

	c.Orders = order.NewStateMachine(runner, repos.Orders, repos.StatusLog, c.Stock, log, order.Options{
		PaymentWindow:    cfg.Order.PaymentWindow,
		BatchConcurrency: cfg.Order.BatchConcurrency,
		TxTimeout:        cfg.Stock.TxTimeout,
	}).WithMetrics(rec)

	if cfg.Kafka.Enabled() {
		pub := kafka.NewStatusPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.StatusTopic))
		c.closers = append(c.closers, pub.Close)
		c.Orders.WithPublisher(pub)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.StatusTopic).Msg("publicación de eventos activa")
	}
	return c, nil
}

func (c *Components) storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (txRunner, repository.Repositories, error) {
	seed, err := ParseSeed(cfg.Stock.Seed)
	if err != nil {
		return nil, repository.Repositories{}, err
	}

	if cfg.DB.Driver == "memory" {
		store := memory.NewStore()
		for _, row := range seed {
			store.PutStock(row)
		}
		log.Warn().Int("skus", len(seed)).Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return store, store.Repositories(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, repository.Repositories{}, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.closers = append(c.closers, func() error { pool.Close(); return nil })
	return postgres.NewTxRunner(pool, cfg.DB.LockTimeout), postgres.Repositories(pool), nil
}

// lockProvider devuelve nil (sin bloqueo distribuido) cuando el proveedor es "none".
// La variable se declara con el tipo de la interfaz para no devolver un nil con tipo.
func (c *Components) lockProvider(cfg *config.Config) (stock.LockProvider, error) {
	var locks stock.LockProvider
	switch cfg.Stock.LockProvider {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, client.Close)
		locks = redislock.New(client, "stock-engine:lock:")
	case "zookeeper":
		conn, err := zklock.Connect(cfg.ZooKeeper.Servers, cfg.ZooKeeper.SessionTimeout)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error { conn.Close(); return nil })
		locks = zklock.New(conn, cfg.ZooKeeper.BasePath)
	}
	if locks != nil {
		c.log.Info().Str("provider", cfg.Stock.LockProvider).Msg("bloqueo distribuido activo")
	}
	return locks, nil
}

// ParseSeed interpreta "sku:stock,sku:stock". Cadena vacía no devuelve filas.
func ParseSeed(raw string) ([]entity.SkuStock, error) {
	var out []entity.SkuStock
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		skuRaw, stockRaw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("seed %q: formato sku:stock", part)
		}
		sku, err := strconv.ParseInt(strings.TrimSpace(skuRaw), 10, 64)
		if err != nil || sku <= 0 {
			return nil, fmt.Errorf("seed %q: sku inválido", part)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(stockRaw))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("seed %q: stock inválido", part)
		}
		out = append(out, entity.SkuStock{SkuID: sku, Stock: qty})
	}
	return out, nil
}
