// expire-orders cancela las órdenes pendientes de pago cuyo plazo venció y libera su stock.
// Pensado para ejecutarse periódicamente (cron / CronJob).
//
// Uso: go run ./cmd/expire-orders [-loop 1m]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/stock-engine/internal/application/order"
	"github.com/jhoicas/stock-engine/internal/bootstrap"
	"github.com/jhoicas/stock-engine/pkg/config"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

func main() {
	every := flag.Duration("loop", 0, "repetir cada intervalo (0 = una sola pasada)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-expire-orders"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, log.Component("bootstrap"))
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar componentes")
	}
	defer components.Close()

	run := func() {
		n, failed, err := expire(ctx, components.Orders, cfg.Order.ExpireBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("listar órdenes vencidas")
		}
		log.Info().Int("cancelled", n).Int("failed", failed).Msg("pasada de vencimiento completada")
	}

	run()
	if *every <= 0 {
		return
	}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("señal de apagado recibida")
			return
		case <-ticker.C:
			run()
		}
	}
}

// expire procesa lotes hasta que no queden órdenes vencidas o un lote no avance.
func expire(ctx context.Context, sm *order.StateMachine, batchSize int) (cancelled, failed int, err error) {
	for ctx.Err() == nil {
		results, err := sm.ExpirePending(ctx, time.Now(), batchSize)
		if err != nil || len(results) == 0 {
			return cancelled, failed, err
		}
		progress := 0
		for _, r := range results {
			if r.OK() {
				progress++
			} else {
				failed++
			}
		}
		cancelled += progress
		if progress == 0 || len(results) < batchSize {
			return cancelled, failed, nil
		}
	}
	return cancelled, failed, nil
}
