package main

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/ingest"
	"github.com/arbengine/arbengine/internal/ingest/venuea"
	"github.com/arbengine/arbengine/internal/ingest/venueb"
	"github.com/arbengine/arbengine/internal/signal/aggregate"
	"github.com/arbengine/arbengine/internal/signal/friction"
	"github.com/arbengine/arbengine/internal/signal/leadlag"
)

func signalCmd() *cobra.Command {
	var notionalUSD float64
	var recomputeEvery time.Duration
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Recompute net edge for every active pair and emit EdgeSignals above threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignal(cmd.Context(), notionalUSD, recomputeEvery)
		},
	}
	cmd.Flags().Float64Var(&notionalUSD, "notional-usd", 500, "trade size used to evaluate depth and friction")
	cmd.Flags().DurationVar(&recomputeEvery, "recompute-every", time.Second, "edge recomputation cadence")
	return cmd
}

// bookCache tracks the latest snapshot per market key, fed by the
// ingest orchestrator's merged stream.
type bookCache struct {
	mu   sync.RWMutex
	snap map[string]domain.BookSnapshot
}

func newBookCache() *bookCache { return &bookCache{snap: make(map[string]domain.BookSnapshot)} }

func (c *bookCache) Put(s domain.BookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap[s.Market.Key()] = s
}

func (c *bookCache) Get(ref domain.MarketRef) (domain.BookSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snap[ref.Key()]
	return s, ok
}

func runSignal(ctx context.Context, notionalUSD float64, recomputeEvery time.Duration) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.pairs == nil || a.edges == nil {
		a.log.Fatal().Msg("signal requires POSTGRES_DSN for pairs and edges persistence")
	}

	pairs, err := a.pairs.ListActive(ctx)
	if err != nil {
		return err
	}
	tracked := map[string]bool{}
	for _, p := range pairs {
		tracked[p.Primary.VenueMarketID] = true
		tracked[p.Hedge.VenueMarketID] = true
	}

	adapterA := venuea.New(a.cfg.VenueA.BaseURL, a.cfg.VenueA.WSURL, a.cfg.HTTPRequestTimeout, a.log)
	adapterB := venueb.New(a.cfg.VenueB.BaseURL, a.cfg.VenueB.WSURL, a.cfg.VenueB.Email, a.cfg.VenueB.Password,
		a.cfg.HTTPRequestTimeout, a.cfg.TokenRefreshSlack, a.log)
	opts := ingest.Options{MaxDepth: 10, TrackedMarkets: tracked, ReconnectPolicy: ingest.DefaultReconnectPolicy()}
	orchestrator := ingest.NewOrchestrator([]ingest.Adapter{adapterA, adapterB}, opts, 1024, a.log)

	cache := newBookCache()
	leadlagCfg := leadlag.Config{
		WindowMinutes:   a.cfg.LeadLagWindowMinutes,
		BarSeconds:      a.cfg.LeadLagBarSeconds,
		MaxLagBars:      a.cfg.LeadLagMaxLagBars,
		StabilityWindow: a.cfg.StabilityWindow,
		MinCorrelation:  a.cfg.MinCorrelation,
	}
	ringCapacity := (leadlagCfg.WindowMinutes * 60 / leadlagCfg.BarSeconds) * 4

	type pairState struct {
		ring    *leadlag.Ring
		tracker *leadlag.StabilityTracker
		frPack  [2]friction.Leg
	}
	states := make(map[string]*pairState, len(pairs))
	defaultPack := friction.Pack{VenueTakerFeePct: 0.02, VenueProfitFeePct: 0.0, GasCostUSD: 0.05, VersionHash: "default-v1"}
	for _, p := range pairs {
		states[p.ID] = &pairState{
			ring:    leadlag.NewRing(ringCapacity),
			tracker: leadlag.NewStabilityTracker(leadlagCfg.StabilityWindow),
			frPack:  [2]friction.Leg{{Pack: defaultPack}, {Pack: defaultPack}},
		}
	}

	go func() {
		for snap := range orchestrator.Snapshots() {
			cache.Put(snap)
			mid, ok := snap.Mid()
			if !ok {
				continue
			}
			for _, p := range pairs {
				if snap.Market.Key() != p.Primary.Key() && snap.Market.Key() != p.Hedge.Key() {
					continue
				}
				point := domain.PricePoint{PairKey: p.ID, Venue: snap.Market.Venue, Timestamp: snap.Timestamp, MidPrice: mid}
				states[p.ID].ring.Push(point)
			}
		}
	}()

	go func() {
		if err := orchestrator.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("signal ingest orchestrator stopped")
		}
	}()

	aggCfg := aggregate.Config{MinEdgeCents: a.cfg.MinEdgeCents, MinHedgeProbability: a.cfg.MinHedgeProbability}
	ticker := time.NewTicker(recomputeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, p := range pairs {
				if !p.Tradable(now) {
					continue
				}
				primarySnap, okP := cache.Get(p.Primary)
				hedgeSnap, okH := cache.Get(p.Hedge)
				if !okP || !okH {
					continue
				}
				st := states[p.ID]
				detection := leadlag.Detect(leadlagCfg, st.ring, now)
				stable, confidence := st.tracker.Observe(detection.Leader, detection.Correlation, leadlagCfg.MinCorrelation)

				in := aggregate.Input{
					PairID: p.ID, Primary: primarySnap, Hedge: hedgeSnap, FrictionPack: st.frPack,
					NotionalUSD: notionalUSD, LeadLag: detection, LeaderStable: stable, Confidence: confidence, Now: now,
				}
				sig, emit := aggregate.Evaluate(aggCfg, st.frPack[0].Pack.VersionHash, in)
				if !emit {
					continue
				}
				if err := a.edges.Insert(ctx, sig); err != nil {
					a.log.Error().Err(err).Str("pair_id", p.ID).Msg("persist edge signal failed")
					continue
				}
				a.metrics.EdgeSignalsEmitted.Inc()
				a.log.Info().Str("pair_id", p.ID).Float64("net_edge_cents", sig.NetEdgeCents).
					Str("leader", string(sig.Leader)).Msg("edge signal emitted")
			}
		}
	}
}
