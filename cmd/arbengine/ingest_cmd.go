package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbengine/arbengine/internal/ingest"
	"github.com/arbengine/arbengine/internal/ingest/venuea"
	"github.com/arbengine/arbengine/internal/ingest/venueb"
)

func ingestCmd() *cobra.Command {
	var snapshotInterval time.Duration
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch venue catalogs and stream order books into persistence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), snapshotInterval)
		},
	}
	cmd.Flags().DurationVar(&snapshotInterval, "snapshot-interval", 5*time.Second, "how often each market's latest book is persisted")
	return cmd
}

func runIngest(ctx context.Context, snapshotInterval time.Duration) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	adapterA := venuea.New(a.cfg.VenueA.BaseURL, a.cfg.VenueA.WSURL, a.cfg.HTTPRequestTimeout, a.log)
	adapterB := venueb.New(a.cfg.VenueB.BaseURL, a.cfg.VenueB.WSURL, a.cfg.VenueB.Email, a.cfg.VenueB.Password,
		a.cfg.HTTPRequestTimeout, a.cfg.TokenRefreshSlack, a.log)

	for _, adapter := range []ingest.Adapter{adapterA, adapterB} {
		markets, err := adapter.FetchMarkets(ctx)
		if err != nil {
			a.log.Error().Err(err).Str("venue", string(adapter.Venue())).Msg("fetch markets failed")
			return err
		}
		if a.markets != nil {
			if err := a.markets.UpsertBatch(ctx, markets); err != nil {
				a.log.Error().Err(err).Str("venue", string(adapter.Venue())).Msg("persist markets failed")
			}
		}
		a.log.Info().Str("venue", string(adapter.Venue())).Int("count", len(markets)).Msg("market catalog fetched")
	}

	opts := ingest.Options{MaxDepth: 10, ReconnectPolicy: ingest.DefaultReconnectPolicy()}
	orchestrator := ingest.NewOrchestrator([]ingest.Adapter{adapterA, adapterB}, opts, 1024, a.log)

	lastPersisted := make(map[string]time.Time)
	go func() {
		for snap := range orchestrator.Snapshots() {
			key := snap.Market.Key()
			if t, ok := lastPersisted[key]; ok && time.Since(t) < snapshotInterval {
				continue
			}
			lastPersisted[key] = time.Now()
			if a.orderbooks == nil {
				continue
			}
			if err := a.orderbooks.Insert(ctx, snap); err != nil {
				a.log.Error().Err(err).Str("market", key).Msg("persist orderbook snapshot failed")
			}
		}
	}()

	return orchestrator.Run(ctx)
}
