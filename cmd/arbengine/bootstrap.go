package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/config"
	"github.com/arbengine/arbengine/internal/logging"
	"github.com/arbengine/arbengine/internal/metrics"
	"github.com/arbengine/arbengine/internal/persistence"
	"github.com/arbengine/arbengine/internal/persistence/postgres"
)

// app bundles the process-wide dependencies every subcommand needs,
// built once per invocation the way the teacher wires its CLI: no
// package-level singletons, everything passed down explicitly.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Collector
	db      *sqlx.DB

	markets   persistence.MarketsRepo
	pairs     persistence.MarketPairsRepo
	orderbooks persistence.OrderbooksRepo
	edges     persistence.EdgesRepo
	orders    persistence.OrdersRepo
	fills     persistence.FillsRepo
	positions persistence.PositionsRepo
	configs   persistence.ConfigsRepo
	events    persistence.EventsRepo
}

// bootstrap loads config, wires logging/metrics, and opens Postgres
// when a DSN is configured. Without a DSN the repos stay nil: ingest
// and match then skip persistence, while signal, execute, backtest and
// serve exit because they need it.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel)
	coll := metrics.NewCollector(prometheus.DefaultRegisterer)

	a := &app{cfg: cfg, log: log, metrics: coll}

	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.db = db
		a.markets = postgres.NewMarketsRepo(db, cfg.HTTPRequestTimeout)
		a.pairs = postgres.NewMarketPairsRepo(db, cfg.HTTPRequestTimeout)
		a.orderbooks = postgres.NewOrderbooksRepo(db, cfg.HTTPRequestTimeout)
		a.edges = postgres.NewEdgesRepo(db, cfg.HTTPRequestTimeout)
		a.orders = postgres.NewOrdersRepo(db, cfg.HTTPRequestTimeout)
		a.fills = postgres.NewFillsRepo(db, cfg.HTTPRequestTimeout)
		a.positions = postgres.NewPositionsRepo(db, cfg.HTTPRequestTimeout)
		a.configs = postgres.NewConfigsRepo(db, cfg.HTTPRequestTimeout)
		a.events = postgres.NewEventsRepo(db, cfg.HTTPRequestTimeout)
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, running without persistence")
	}

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
