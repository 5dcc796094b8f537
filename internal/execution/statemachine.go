// Package execution implements the hedged two-leg taker execution
// state machine: READY -> PRIMARY_PLACED -> HEDGE_PLACED -> SETTLED |
// FAILED, with cancel-on-failure and a bounded hedge completion
// budget. Modeled on the teacher's goroutine-per-unit-of-work style
// (see internal/infrastructure/async/pipeline.go), but the coordinator
// here runs a single intent through to exactly one terminal result
// rather than streaming stages.
package execution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/metrics"
	"github.com/arbengine/arbengine/internal/retry"
)

// State is a state machine node.
type State string

const (
	StateReady         State = "READY"
	StatePrimaryPlaced State = "PRIMARY_PLACED"
	StateHedgePlaced   State = "HEDGE_PLACED"
	StateSettled       State = "SETTLED"
	StateFailed        State = "FAILED"
)

// LegExecutor places and cancels orders on one venue. venuea and
// venueb each provide a concrete implementation.
type LegExecutor interface {
	Venue() domain.Venue
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderRecord, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Result is the exactly-one terminal outcome of running an
// ExecutionIntent through the state machine.
type Result struct {
	IntentID     string
	State        State
	Reason       string
	PrimaryOrder domain.OrderRecord
	HedgeOrder   domain.OrderRecord
	CompletedAt  time.Time
}

// Config holds the state machine's tunables.
type Config struct {
	HedgeCompletionBudget time.Duration
	MaxAttempts           int
}

// DefaultConfig is a 250ms hedge completion budget and up to 2
// placement attempts per leg.
func DefaultConfig() Config {
	return Config{HedgeCompletionBudget: 250 * time.Millisecond, MaxAttempts: 2}
}

// Coordinator runs ExecutionIntents through the state machine, one at
// a time per call to Execute. Safe for concurrent use across distinct
// intents.
type Coordinator struct {
	primary LegExecutor
	hedge   LegExecutor
	cfg     Config
	metrics *metrics.Collector
	log     zerolog.Logger
}

// NewCoordinator builds a Coordinator for one primary/hedge venue pair.
func NewCoordinator(primary, hedge LegExecutor, cfg Config, m *metrics.Collector, log zerolog.Logger) *Coordinator {
	return &Coordinator{primary: primary, hedge: hedge, cfg: cfg, metrics: m, log: log}
}

// Execute drives one ExecutionIntent from READY to a single terminal
// Result. It never panics and never returns without a terminal State.
func (c *Coordinator) Execute(ctx context.Context, intent domain.ExecutionIntent) Result {
	start := time.Now()
	state := StateReady

	primaryRec, err := c.placeWithRetry(ctx, c.primary, intent.PrimaryOrder)
	if err != nil {
		return c.fail(intent, start, state, "primary order rejected: "+err.Error(), primaryRec, domain.OrderRecord{})
	}
	state = StatePrimaryPlaced
	primaryRec.Status = domain.OrderStatusAccepted

	elapsed := time.Since(start)
	remaining := c.cfg.HedgeCompletionBudget - elapsed
	if remaining <= 0 {
		c.cancelQuietly(c.primary, primaryRec.VenueOrderID)
		return c.fail(intent, start, state, "Hedge timeout exceeded", primaryRec, domain.OrderRecord{})
	}

	hedgeCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	hedgeRec, err := c.placeWithRetry(hedgeCtx, c.hedge, intent.HedgeOrder)
	totalElapsed := time.Since(start)

	if err != nil {
		c.cancelQuietly(c.primary, primaryRec.VenueOrderID)
		reason := "hedge order rejected: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "Hedge timeout exceeded"
		}
		return c.fail(intent, start, state, reason, primaryRec, domain.OrderRecord{})
	}

	state = StateHedgePlaced
	hedgeRec.Status = domain.OrderStatusAccepted

	if totalElapsed > c.cfg.HedgeCompletionBudget {
		c.cancelQuietly(c.primary, primaryRec.VenueOrderID)
		c.cancelQuietly(c.hedge, hedgeRec.VenueOrderID)
		return c.fail(intent, start, state, "Hedge timeout exceeded", primaryRec, hedgeRec)
	}

	if c.metrics != nil {
		c.metrics.ExecutionOutcomes.WithLabelValues("settled").Inc()
	}
	c.log.Info().Str("intent_id", intent.IntentID).Dur("elapsed", totalElapsed).Msg("execution settled")
	return Result{
		IntentID:     intent.IntentID,
		State:        StateSettled,
		PrimaryOrder: primaryRec,
		HedgeOrder:   hedgeRec,
		CompletedAt:  time.Now(),
	}
}

// placeWithRetry attempts PlaceOrder up to cfg.MaxAttempts times with
// exponential backoff between attempts, stopping early on a
// non-retryable error per errkind (see retry.Do).
func (c *Coordinator) placeWithRetry(ctx context.Context, exec LegExecutor, order domain.OrderIntent) (domain.OrderRecord, error) {
	attempts := c.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = attempts

	var rec domain.OrderRecord
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		r, err := exec.PlaceOrder(ctx, order)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

func (c *Coordinator) cancelQuietly(exec LegExecutor, venueOrderID string) {
	if venueOrderID == "" {
		return
	}
	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CancelOrder(cancelCtx, venueOrderID); err != nil {
		c.log.Warn().Err(err).Str("venue_order_id", venueOrderID).Msg("cancel-on-failure request failed")
	}
}

func (c *Coordinator) fail(intent domain.ExecutionIntent, start time.Time, state State, reason string, primary, hedge domain.OrderRecord) Result {
	if c.metrics != nil {
		c.metrics.ExecutionOutcomes.WithLabelValues("failed_" + string(state)).Inc()
	}
	c.log.Warn().Str("intent_id", intent.IntentID).Str("state", string(state)).Str("reason", reason).
		Dur("elapsed", time.Since(start)).Msg("execution failed")
	return Result{
		IntentID:     intent.IntentID,
		State:        StateFailed,
		Reason:       reason,
		PrimaryOrder: primary,
		HedgeOrder:   hedge,
		CompletedAt:  time.Now(),
	}
}

// NewIntentID generates a fresh id for an ExecutionIntent.
func NewIntentID() string {
	return uuid.NewString()
}
