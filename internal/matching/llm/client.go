// Package llm wraps two LLM providers behind token-bucket rate
// limiters and exponential-backoff retries. On permanent failure of
// the primary it falls through to the fallback; if both fail it
// conservatively returns similarity=0 rather than crash the matching
// pipeline. Usage accounting is exact:
// total_cost_usd == sum(per_call_cost_usd).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/retry"
)

// FieldMatches is the structured reply's per-field agreement flags.
type FieldMatches struct {
	TimeWindow        bool `json:"time_window"`
	OutcomeDefinition bool `json:"outcome_definition"`
	ResolutionSource  bool `json:"resolution_source"`
}

// Response is the structured JSON reply requested from the model.
type Response struct {
	Similarity   float64       `json:"similarity"`
	Explanation  string        `json:"explanation"`
	FieldMatches FieldMatches  `json:"field_matches"`
}

// Usage is the per-call accounting record.
type Usage struct {
	Provider         string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// Provider is a single LLM backend capable of answering the structured
// equivalence prompt.
type Provider interface {
	Name() string
	Score(ctx context.Context, prompt string) (Response, Usage, error)
}

// Client wraps a primary and fallback Provider with independent
// token-bucket rate limiters and retry policy.
type Client struct {
	primary         Provider
	fallback        Provider
	primaryLimiter  *rate.Limiter
	fallbackLimiter *rate.Limiter
	retryPolicy     retry.Policy
	minScore        float64

	mu         sync.Mutex
	usageLog   []Usage
}

// NewClient builds a Client. primaryRPM/fallbackRPM are used as given
// (the config defaults are 60 and 500); each limiter's burst equals its
// per-minute rate.
func NewClient(primary, fallback Provider, primaryRPM, fallbackRPM int, minScore float64) *Client {
	return &Client{
		primary:         primary,
		fallback:        fallback,
		primaryLimiter:  rate.NewLimiter(rate.Limit(float64(primaryRPM)/60.0), primaryRPM),
		fallbackLimiter: rate.NewLimiter(rate.Limit(float64(fallbackRPM)/60.0), fallbackRPM),
		retryPolicy:     retry.DefaultPolicy(),
		minScore:        minScore,
	}
}

// Decision is the outcome of scoring one candidate pair.
type Decision struct {
	Accepted bool
	Score    float64
	Reason   string
}

// Evaluate builds the structured prompt for (primary, hedge) and
// scores it, trying the primary provider first and falling through to
// fallback on permanent failure. If both fail, it returns a
// conservative rejection with score 0 instead of propagating the
// error, so the matching pipeline never crashes on an LLM outage.
func (c *Client) Evaluate(ctx context.Context, primary, hedge domain.Market) Decision {
	prompt := BuildPrompt(primary, hedge)

	resp, usage, err := c.callWithLimiter(ctx, c.primary, c.primaryLimiter, prompt)
	if err != nil {
		resp, usage, err = c.callWithLimiter(ctx, c.fallback, c.fallbackLimiter, prompt)
	}
	if err != nil {
		return Decision{Accepted: false, Score: 0, Reason: "both providers failed: " + err.Error()}
	}

	c.mu.Lock()
	c.usageLog = append(c.usageLog, usage)
	c.mu.Unlock()

	if resp.Similarity >= c.minScore {
		return Decision{Accepted: true, Score: resp.Similarity}
	}
	return Decision{Accepted: false, Score: resp.Similarity, Reason: fmt.Sprintf("similarity %.3f below threshold %.3f", resp.Similarity, c.minScore)}
}

func (c *Client) callWithLimiter(ctx context.Context, p Provider, limiter *rate.Limiter, prompt string) (Response, Usage, error) {
	if err := limiter.Wait(ctx); err != nil {
		return Response{}, Usage{}, err
	}
	var resp Response
	var usage Usage
	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		var callErr error
		resp, usage, callErr = p.Score(ctx, prompt)
		return callErr
	})
	return resp, usage, err
}

// TotalCostUSD sums every recorded call's cost, satisfying the
// testable invariant total_cost_usd == sum(per_call_cost_usd).
func (c *Client) TotalCostUSD() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, u := range c.usageLog {
		total += u.CostUSD
	}
	return total
}

// UsageLog returns a copy of every recorded call's usage.
func (c *Client) UsageLog() []Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Usage, len(c.usageLog))
	copy(out, c.usageLog)
	return out
}

// BuildPrompt constructs the structured-equivalence prompt for two
// markets, embedding both identifiers and symbols.
func BuildPrompt(primary, hedge domain.Market) string {
	b, _ := json.Marshal(struct {
		Primary struct {
			ID     string `json:"id"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		} `json:"primary"`
		Hedge struct {
			ID     string `json:"id"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		} `json:"hedge"`
		Instructions string `json:"instructions"`
	}{
		Primary: struct {
			ID     string `json:"id"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		}{primary.ID, primary.VenueTicker, primary.Title},
		Hedge: struct {
			ID     string `json:"id"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		}{hedge.ID, hedge.VenueTicker, hedge.Title},
		Instructions: "Reply with JSON {similarity in [0,1], explanation, field_matches: {time_window, outcome_definition, resolution_source: bool}} describing whether these two binary markets are economically equivalent.",
	})
	return string(b)
}
