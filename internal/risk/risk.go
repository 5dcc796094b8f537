// Package risk implements the pre-trade approval checks: per-venue
// notional caps, per-contract limits, and a concurrent-pairs ceiling,
// backed by a pluggable counter store so the same policy runs against
// an in-memory counter in tests/backtests and a Redis-Lua-scripted
// counter in production.
package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/arbengine/arbengine/internal/domain"
)

// Store tracks outstanding notional exposure per venue and the count
// of currently active pairs. Implementations must make
// IncrementIfWithinCap atomic: the check-then-increment must not race
// with a concurrent caller.
type Store interface {
	// IncrementIfWithinCap atomically adds amountUSD to the venue's
	// counter and returns the counter's new value, but only if doing
	// so would not exceed capUSD; otherwise it leaves the counter
	// unchanged and returns the current value with ok=false.
	IncrementIfWithinCap(ctx context.Context, venue domain.Venue, amountUSD, capUSD float64) (newTotal float64, ok bool, err error)
	CurrentExposure(ctx context.Context, venue domain.Venue) (float64, error)
	ActivePairCount(ctx context.Context) (int, error)
	IncrementActivePairs(ctx context.Context, delta int) (int, error)
}

// Config holds the risk thresholds.
type Config struct {
	VenueCapUSD         float64
	PerContractLimitUSD float64
	MaxConcurrentPairs  int
}

// DefaultConfig is a 5000 USD venue cap, 250 USD per-contract limit,
// and up to 5 concurrent pairs.
func DefaultConfig() Config {
	return Config{VenueCapUSD: 5000, PerContractLimitUSD: 250, MaxConcurrentPairs: 5}
}

// Decision is the outcome of one pre-trade approval check.
type Decision struct {
	Approved bool
	Reason   string
}

// Manager evaluates ExecutionIntents against the configured caps
// before they reach the execution state machine.
type Manager struct {
	store Store
	cfg   Config
}

// NewManager builds a risk manager over the given counter store.
func NewManager(store Store, cfg Config) *Manager {
	return &Manager{store: store, cfg: cfg}
}

// Approve runs the per-contract limit, concurrent-pairs ceiling, and
// venue cap (attempted atomically via the store) checks in that order.
// The venue-cap increment is only committed if every earlier check
// already passed.
func (m *Manager) Approve(ctx context.Context, intent domain.ExecutionIntent, venue domain.Venue, notionalUSD float64) (Decision, error) {
	if notionalUSD > m.cfg.PerContractLimitUSD {
		return Decision{Approved: false, Reason: fmt.Sprintf("notional %.2f exceeds per-contract limit %.2f", notionalUSD, m.cfg.PerContractLimitUSD)}, nil
	}

	activePairs, err := m.store.ActivePairCount(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("check active pairs: %w", err)
	}
	if activePairs >= m.cfg.MaxConcurrentPairs {
		return Decision{Approved: false, Reason: fmt.Sprintf("active pairs %d at max concurrent limit %d", activePairs, m.cfg.MaxConcurrentPairs)}, nil
	}

	_, ok, err := m.store.IncrementIfWithinCap(ctx, venue, notionalUSD, m.cfg.VenueCapUSD)
	if err != nil {
		return Decision{}, fmt.Errorf("check venue cap: %w", err)
	}
	if !ok {
		current, _ := m.store.CurrentExposure(ctx, venue)
		return Decision{Approved: false, Reason: fmt.Sprintf("venue %s exposure %.2f + notional %.2f would exceed cap %.2f", venue, current, notionalUSD, m.cfg.VenueCapUSD)}, nil
	}

	return Decision{Approved: true}, nil
}

// Release gives back notional exposure after a position closes or an
// execution attempt fails after reserving capacity.
func (m *Manager) Release(ctx context.Context, venue domain.Venue, notionalUSD float64) error {
	_, _, err := m.store.IncrementIfWithinCap(ctx, venue, -notionalUSD, -1) // capUSD<0 disables the cap check for releases
	return err
}

// memStore is an in-memory Store guarded by a mutex, for tests and
// backtests where no Redis instance is available.
type memStore struct {
	mu          sync.Mutex
	exposure    map[domain.Venue]float64
	activePairs int
}

// NewMemStore builds an in-memory risk counter store.
func NewMemStore() Store {
	return &memStore{exposure: make(map[domain.Venue]float64)}
}

func (s *memStore) IncrementIfWithinCap(ctx context.Context, venue domain.Venue, amountUSD, capUSD float64) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.exposure[venue]
	next := current + amountUSD
	if capUSD >= 0 && next > capUSD {
		return current, false, nil
	}
	s.exposure[venue] = next
	return next, true, nil
}

func (s *memStore) CurrentExposure(ctx context.Context, venue domain.Venue) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure[venue], nil
}

func (s *memStore) ActivePairCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePairs, nil
}

func (s *memStore) IncrementActivePairs(ctx context.Context, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePairs += delta
	if s.activePairs < 0 {
		s.activePairs = 0
	}
	return s.activePairs, nil
}
