// migrate aplica las migraciones embebidas sobre PostgreSQL y, opcionalmente,
// da de alta filas de stock iniciales.
//
// Uso: go run ./cmd/migrate [-seed "1:100,2:50"]
// Sin -seed se usa STOCK_SEED. Los SKUs que ya existen se dejan intactos.
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/jhoicas/stock-engine/internal/bootstrap"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-engine/pkg/config"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

func main() {
	seedFlag := flag.String("seed", "", "filas iniciales sku:stock separadas por comas")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-migrate"})
	if cfg.DB.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.DB.Driver).Msg("migrate solo aplica a DB_DRIVER=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, log.Component("migrate"))
	if err != nil {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
	log.Info().Int("applied", len(applied)).Msg("migraciones al día")

	raw := *seedFlag
	if raw == "" {
		raw = cfg.Stock.Seed
	}
	rows, err := bootstrap.ParseSeed(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("seed inválido")
	}
	stockRepo := postgres.NewStockRepository(pool)
	created := 0
	for i := range rows {
		err := stockRepo.Create(ctx, &rows[i])
		switch {
		case errors.Is(err, domain.ErrConflict):
			log.Info().Int64("sku_id", rows[i].SkuID).Msg("SKU ya existe, se omite")
		case err != nil:
			log.Fatal().Err(err).Int64("sku_id", rows[i].SkuID).Msg("alta de SKU")
		default:
			created++
		}
	}
	if len(rows) > 0 {
		log.Info().Int("created", created).Int("requested", len(rows)).Msg("seed de stock aplicado")
	}
}
