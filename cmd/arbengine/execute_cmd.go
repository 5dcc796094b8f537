package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/execution"
	"github.com/arbengine/arbengine/internal/execution/venuea"
	"github.com/arbengine/arbengine/internal/execution/venueb"
	"github.com/arbengine/arbengine/internal/ingest"
	ingestvenuea "github.com/arbengine/arbengine/internal/ingest/venuea"
	ingestvenueb "github.com/arbengine/arbengine/internal/ingest/venueb"
	"github.com/arbengine/arbengine/internal/risk"
	"github.com/arbengine/arbengine/internal/signal/aggregate"
	"github.com/arbengine/arbengine/internal/signal/friction"
	"github.com/arbengine/arbengine/internal/signal/leadlag"
)

func executeCmd() *cobra.Command {
	var notionalUSD float64
	var recomputeEvery time.Duration
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Recompute edges live and execute hedged taker orders when they clear thresholds and risk limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd.Context(), notionalUSD, recomputeEvery)
		},
	}
	cmd.Flags().Float64Var(&notionalUSD, "notional-usd", 500, "trade size per execution attempt")
	cmd.Flags().DurationVar(&recomputeEvery, "recompute-every", time.Second, "edge recomputation cadence")
	return cmd
}

func runExecute(ctx context.Context, notionalUSD float64, recomputeEvery time.Duration) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.pairs == nil {
		a.log.Fatal().Msg("execute requires POSTGRES_DSN for pairs persistence")
	}

	pairs, err := a.pairs.ListActive(ctx)
	if err != nil {
		return err
	}

	execA, err := venuea.New(a.cfg.VenueA.BaseURL, a.cfg.VenueA.PrivateKeyHex, a.cfg.VenueA.ChainID, a.cfg.HTTPRequestTimeout, a.log)
	if err != nil {
		return err
	}
	execB := venueb.New(a.cfg.VenueB.BaseURL, a.cfg.VenueB.Email, a.cfg.VenueB.Password, a.cfg.HTTPRequestTimeout, a.cfg.TokenRefreshSlack, a.log)
	coordinator := execution.NewCoordinator(execA, execB, execution.Config{
		HedgeCompletionBudget: a.cfg.HedgeCompletionBudget,
		MaxAttempts:           a.cfg.MaxExecutionAttempts,
	}, a.metrics, a.log)

	riskStore := risk.NewMemStore()
	riskMgr := risk.NewManager(riskStore, risk.Config{
		VenueCapUSD:         a.cfg.VenueCapUSD,
		PerContractLimitUSD: a.cfg.PerContractLimitUSD,
		MaxConcurrentPairs:  a.cfg.MaxConcurrentPairs,
	})

	ingestA := ingestvenuea.New(a.cfg.VenueA.BaseURL, a.cfg.VenueA.WSURL, a.cfg.HTTPRequestTimeout, a.log)
	ingestB := ingestvenueb.New(a.cfg.VenueB.BaseURL, a.cfg.VenueB.WSURL, a.cfg.VenueB.Email, a.cfg.VenueB.Password,
		a.cfg.HTTPRequestTimeout, a.cfg.TokenRefreshSlack, a.log)

	tracked := map[string]bool{}
	for _, p := range pairs {
		tracked[p.Primary.VenueMarketID] = true
		tracked[p.Hedge.VenueMarketID] = true
	}
	opts := ingest.Options{MaxDepth: 10, TrackedMarkets: tracked, ReconnectPolicy: ingest.DefaultReconnectPolicy()}
	orchestrator := ingest.NewOrchestrator([]ingest.Adapter{ingestA, ingestB}, opts, 1024, a.log)

	cache := newBookCache()
	leadlagCfg := leadlag.Config{
		WindowMinutes: a.cfg.LeadLagWindowMinutes, BarSeconds: a.cfg.LeadLagBarSeconds,
		MaxLagBars: a.cfg.LeadLagMaxLagBars, StabilityWindow: a.cfg.StabilityWindow, MinCorrelation: a.cfg.MinCorrelation,
	}
	ringCapacity := (leadlagCfg.WindowMinutes * 60 / leadlagCfg.BarSeconds) * 4

	type pairState struct {
		ring    *leadlag.Ring
		tracker *leadlag.StabilityTracker
		frPack  [2]friction.Leg
	}
	states := make(map[string]*pairState, len(pairs))
	defaultPack := friction.Pack{VenueTakerFeePct: 0.02, GasCostUSD: 0.05, VersionHash: "default-v1"}
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
				states[p.ID].ring.Push(domain.PricePoint{PairKey: p.ID, Venue: snap.Market.Venue, Timestamp: snap.Timestamp, MidPrice: mid})
			}
		}
	}()
	go func() {
		if err := orchestrator.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("execute ingest orchestrator stopped")
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

				sig, emit := aggregate.Evaluate(aggCfg, st.frPack[0].Pack.VersionHash, aggregate.Input{
					PairID: p.ID, Primary: primarySnap, Hedge: hedgeSnap, FrictionPack: st.frPack,
					NotionalUSD: notionalUSD, LeadLag: detection, LeaderStable: stable, Confidence: confidence, Now: now,
				})
				if a.edges != nil {
					_ = a.edges.Insert(ctx, sig)
				}
				if !emit {
					continue
				}
				a.metrics.EdgeSignalsEmitted.Inc()

				intent := buildExecutionIntent(p, sig, primarySnap, hedgeSnap, notionalUSD, now)
				decision, err := riskMgr.Approve(ctx, intent, p.Primary.Venue, notionalUSD)
				if err != nil {
					a.log.Error().Err(err).Str("pair_id", p.ID).Msg("risk check failed")
					continue
				}
				if !decision.Approved {
					a.metrics.RiskRejections.WithLabelValues(decision.Reason).Inc()
					a.log.Info().Str("pair_id", p.ID).Str("reason", decision.Reason).Msg("execution rejected by risk manager")
					continue
				}

				result := coordinator.Execute(ctx, intent)
				a.log.Info().Str("pair_id", p.ID).Str("state", string(result.State)).Str("reason", result.Reason).Msg("execution attempt complete")
				persistExecutionResult(ctx, a, result)
				if result.State != execution.StateSettled {
					_ = riskMgr.Release(ctx, p.Primary.Venue, notionalUSD)
				}
			}
		}
	}
}

// buildExecutionIntent derives the two taker OrderIntents from the
// current top-of-book: primary trades at its best ask/bid depending on
// the signal's side, the hedge trades the opposing side on the other
// venue.
func buildExecutionIntent(p domain.MarketPair, sig domain.EdgeSignal, primary, hedge domain.BookSnapshot, notionalUSD float64, now time.Time) domain.ExecutionIntent {
	var primaryIntent, hedgeIntent domain.OrderIntent
	size := decimal.NewFromFloat(notionalUSD)

	if sig.PrimarySide == domain.SideBuy {
		ask, _ := primary.BestAsk()
		bid, _ := hedge.BestBid()
		primaryIntent = domain.OrderIntent{Venue: p.Primary.Venue, MarketID: p.Primary.VenueMarketID, Side: domain.SideBuy, Price: ask.Price, Size: size.Div(ask.Price), CreatedAt: now, ClientOrderID: uuid.NewString()}
		hedgeIntent = domain.OrderIntent{Venue: p.Hedge.Venue, MarketID: p.Hedge.VenueMarketID, Side: domain.SideSell, Price: bid.Price, Size: size.Div(bid.Price), CreatedAt: now, ClientOrderID: uuid.NewString()}
	} else {
		bid, _ := primary.BestBid()
		ask, _ := hedge.BestAsk()
		primaryIntent = domain.OrderIntent{Venue: p.Primary.Venue, MarketID: p.Primary.VenueMarketID, Side: domain.SideSell, Price: bid.Price, Size: size.Div(bid.Price), CreatedAt: now, ClientOrderID: uuid.NewString()}
		hedgeIntent = domain.OrderIntent{Venue: p.Hedge.Venue, MarketID: p.Hedge.VenueMarketID, Side: domain.SideBuy, Price: ask.Price, Size: size.Div(ask.Price), CreatedAt: now, ClientOrderID: uuid.NewString()}
	}

	return domain.ExecutionIntent{
		IntentID:         execution.NewIntentID(),
		Edge:             sig,
		PrimaryOrder:     primaryIntent,
		HedgeOrder:       hedgeIntent,
		MaxNotional:      decimal.NewFromFloat(notionalUSD),
		HedgeProbability: sig.HedgeProbability,
		CreatedAt:        now,
	}
}

func persistExecutionResult(ctx context.Context, a *app, result execution.Result) {
	if a.orders == nil {
		return
	}
	for _, rec := range []domain.OrderRecord{result.PrimaryOrder, result.HedgeOrder} {
		if rec.ID == "" && rec.VenueOrderID == "" {
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.IntentID = result.IntentID
		if err := a.orders.Upsert(ctx, rec); err != nil {
			a.log.Error().Err(err).Str("intent_id", result.IntentID).Msg("persist order failed")
		}
	}
	if a.positions != nil && result.State == execution.StateSettled {
		notional, _ := result.PrimaryOrder.Price.Mul(result.PrimaryOrder.Quantity).Float64()
		if _, err := a.positions.ApplyDelta(ctx, result.PrimaryOrder.Venue, result.PrimaryOrder.MarketID, 1, notional); err != nil {
			a.log.Error().Err(err).Msg("apply position delta failed")
		}
	}
}
