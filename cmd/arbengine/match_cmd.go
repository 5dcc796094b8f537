package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbengine/arbengine/internal/ingest/venuea"
	"github.com/arbengine/arbengine/internal/ingest/venueb"
	"github.com/arbengine/arbengine/internal/matching"
	"github.com/arbengine/arbengine/internal/matching/llm"
	"github.com/arbengine/arbengine/internal/matching/rules"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run one matching pass: blocking, hard rules, LLM scoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context())
		},
	}
	return cmd
}

func runMatch(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	adapterA := venuea.New(a.cfg.VenueA.BaseURL, a.cfg.VenueA.WSURL, a.cfg.HTTPRequestTimeout, a.log)
	adapterB := venueb.New(a.cfg.VenueB.BaseURL, a.cfg.VenueB.WSURL, a.cfg.VenueB.Email, a.cfg.VenueB.Password,
		a.cfg.HTTPRequestTimeout, a.cfg.TokenRefreshSlack, a.log)

	marketsA, err := adapterA.FetchMarkets(ctx)
	if err != nil {
		return err
	}
	marketsB, err := adapterB.FetchMarkets(ctx)
	if err != nil {
		return err
	}

	primary := llm.NewHTTPProvider("primary", a.cfg.LLMPrimaryBaseURL, os.Getenv("LLM_PRIMARY_API_KEY"), a.cfg.LLMPrimaryModel, a.cfg.LLMPrimaryCostPerTok)
	fallback := llm.NewHTTPProvider("fallback", a.cfg.LLMFallbackBaseURL, os.Getenv("LLM_FALLBACK_API_KEY"), a.cfg.LLMFallbackModel, a.cfg.LLMFallbackCostPerTok)
	llmClient := llm.NewClient(primary, fallback, a.cfg.LLMPrimaryRPM, a.cfg.LLMFallbackRPM, a.cfg.LLMMinScore)

	svc := matching.NewService(a.cfg.MinJaccard, rules.DefaultConfig(), llmClient, a.metrics, a.log)

	now := time.Now()
	outcomes := svc.Run(ctx, marketsA, marketsB, now)

	accepted := 0
	for _, o := range outcomes {
		if !o.Accepted {
			if a.events != nil {
				_ = a.events.Insert(ctx, persistenceEvent("pair_rejected", "", map[string]interface{}{"stage": o.Stage, "reason": o.Reason}, now))
			}
			continue
		}
		accepted++
		if a.pairs != nil {
			if err := a.pairs.Upsert(ctx, o.Pair); err != nil {
				a.log.Error().Err(err).Str("pair_id", o.Pair.ID).Msg("persist pair failed")
			}
		}
	}
	a.log.Info().Int("total", len(outcomes)).Int("accepted", accepted).Msg("matching pass complete")
	return nil
}
