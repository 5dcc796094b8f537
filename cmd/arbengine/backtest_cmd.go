package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbengine/arbengine/internal/backtest"
	"github.com/arbengine/arbengine/internal/persistence"
	"github.com/arbengine/arbengine/internal/signal/friction"
)

func backtestCmd() *cobra.Command {
	var pairID string
	var fromStr, toStr string
	var minEdgeCents, tradeSizeUSD float64
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay persisted order book history through the friction/depth models and report performance metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktest(cmd.Context(), pairID, fromStr, toStr, minEdgeCents, tradeSizeUSD)
		},
	}
	cmd.Flags().StringVar(&pairID, "pair-id", "", "pair id to replay (required)")
	cmd.Flags().StringVar(&fromStr, "from", "", "RFC3339 start of replay window (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "RFC3339 end of replay window (required)")
	cmd.Flags().Float64Var(&minEdgeCents, "min-edge-cents", 2.5, "gross edge threshold to open a simulated trade")
	cmd.Flags().Float64Var(&tradeSizeUSD, "trade-size-usd", 500, "simulated trade notional")
	_ = cmd.MarkFlagRequired("pair-id")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runBacktest(ctx context.Context, pairID, fromStr, toStr string, minEdgeCents, tradeSizeUSD float64) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.pairs == nil || a.orderbooks == nil {
		a.log.Fatal().Msg("backtest requires POSTGRES_DSN for pairs and orderbooks persistence")
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return fmt.Errorf("parse --from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return fmt.Errorf("parse --to: %w", err)
	}

	pair, err := a.pairs.Get(ctx, pairID)
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("pair %s not found", pairID)
	}

	tr := persistence.TimeRange{From: from, To: to}
	primaryBooks, err := a.orderbooks.ListForReplay(ctx, pair.Primary.Venue, pair.Primary.VenueMarketID, tr)
	if err != nil {
		return err
	}
	hedgeBooks, err := a.orderbooks.ListForReplay(ctx, pair.Hedge.Venue, pair.Hedge.VenueMarketID, tr)
	if err != nil {
		return err
	}

	defaultPack := friction.Pack{VenueTakerFeePct: 0.02, GasCostUSD: 0.05, VersionHash: "backtest-v1"}
	engine := backtest.NewEngine([2]friction.Leg{{Pack: defaultPack}, {Pack: defaultPack}}, minEdgeCents, tradeSizeUSD, a.log)

	result := engine.Run([]backtest.PairSnapshots{{PairID: pairID, Primary: primaryBooks, Hedge: hedgeBooks}})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Metrics)
}
