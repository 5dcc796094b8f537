// Package matching composes the three-stage pipeline: blocking, hard
// rules, LLM scoring. Any stage rejecting a pair aborts downstream
// work for it. Runs on a slower offline cadence; its output is the
// validated MarketPair set the signal engine reads.
package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/matching/blocking"
	"github.com/arbengine/arbengine/internal/matching/llm"
	"github.com/arbengine/arbengine/internal/matching/rules"
	"github.com/arbengine/arbengine/internal/metrics"
)

// Service runs one matching pass over the current venue catalogs.
type Service struct {
	minJaccard float64
	rulesCfg   rules.Config
	llmClient  *llm.Client
	metrics    *metrics.Collector
	log        zerolog.Logger
}

// NewService builds the matching service.
func NewService(minJaccard float64, rulesCfg rules.Config, llmClient *llm.Client, m *metrics.Collector, log zerolog.Logger) *Service {
	return &Service{minJaccard: minJaccard, rulesCfg: rulesCfg, llmClient: llmClient, metrics: m, log: log}
}

// Outcome is the per-candidate result of a full matching pass, used
// for auditing rejected candidates alongside accepted pairs.
type Outcome struct {
	Pair     domain.MarketPair
	Accepted bool
	Stage    string // "blocking", "rules", "llm"
	Reason   string
}

// Run executes blocking -> hard rules -> LLM over the given catalogs
// and returns every outcome (accepted and rejected), so callers can
// persist validated pairs and audit rejections alike.
func (s *Service) Run(ctx context.Context, venueAMarkets, venueBMarkets []domain.Market, now time.Time) []Outcome {
	candidates, stats := blocking.Generate(venueAMarkets, venueBMarkets, s.minJaccard)
	if s.metrics != nil {
		s.metrics.CandidatesGenerated.Add(float64(stats.Candidates))
		s.metrics.CandidatesBlocked.Add(float64(stats.Blocked))
	}
	s.log.Info().Int("candidates", stats.Candidates).Int("blocked", stats.Blocked).
		Float64("reduction_ratio", stats.ReductionRatio()).Msg("blocking stage complete")

	outcomes := make([]Outcome, 0, len(candidates))
	for _, cand := range candidates {
		select {
		case <-ctx.Done():
			return outcomes
		default:
		}

		ruleResult := rules.Validate(s.rulesCfg, cand.Primary, cand.Hedge)
		if !ruleResult.Passed {
			s.recordRejection("rules", ruleResult.Reason)
			outcomes = append(outcomes, Outcome{Stage: "rules", Accepted: false, Reason: ruleResult.Reason})
			continue
		}

		decision := s.llmClient.Evaluate(ctx, cand.Primary, cand.Hedge)
		if !decision.Accepted {
			s.recordRejection("llm", decision.Reason)
			outcomes = append(outcomes, Outcome{Stage: "llm", Accepted: false, Reason: decision.Reason})
			continue
		}

		pair := domain.MarketPair{
			ID:      uuid.NewString(),
			Primary: domain.MarketRef{Venue: cand.Primary.Venue, VenueMarketID: cand.Primary.ID, CanonicalSymbol: cand.Primary.VenueTicker},
			Hedge:   domain.MarketRef{Venue: cand.Hedge.Venue, VenueMarketID: cand.Hedge.ID, CanonicalSymbol: cand.Hedge.VenueTicker},
			Window: domain.PairWindow{
				Open:  maxTime(cand.Primary.OpenTime, cand.Hedge.OpenTime),
				Close: minTime(cand.Primary.CloseTime, cand.Hedge.CloseTime),
			},
			LLMScore:        decision.Score,
			HardRulesPassed: true,
			Active:          true,
			LastValidated:   now,
		}
		if s.metrics != nil {
			s.metrics.PairsValidated.Inc()
		}
		outcomes = append(outcomes, Outcome{Pair: pair, Accepted: true, Stage: "llm"})
	}
	return outcomes
}

func (s *Service) recordRejection(stage, reason string) {
	if s.metrics != nil {
		s.metrics.PairsRejected.WithLabelValues(stage).Inc()
	}
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
