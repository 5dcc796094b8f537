// Package ingest defines the venue adapter contract and the fan-in
// orchestrator that awaits all adapters concurrently.
package ingest

import (
	"context"

	"github.com/arbengine/arbengine/internal/domain"
)

// Adapter exposes the two capabilities every venue integration must
// provide: catalog fetch and a streaming book subscription.
type Adapter interface {
	// Venue identifies which venue this adapter serves.
	Venue() domain.Venue

	// FetchMarkets returns the full market catalog. A fetch error here
	// is fatal to the adapter and is surfaced to the orchestrator.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)

	// SubscribeBooks emits a logical infinite sequence of BookSnapshots
	// onto out until ctx is cancelled or an unrecoverable error occurs.
	// Order within a single market is monotonic in update time; order
	// across markets is not guaranteed. tracked restricts emission to
	// the given venue market ids; a nil/empty set means "all binary
	// markets".
	SubscribeBooks(ctx context.Context, out chan<- domain.BookSnapshot, tracked map[string]bool, maxDepth int) error
}

// Options configures an adapter subscription.
type Options struct {
	MaxDepth        int
	TrackedMarkets  map[string]bool // nil/empty = all binary markets
	ReconnectPolicy ReconnectPolicy
}

// ReconnectPolicy describes an exponential-backoff reconnect schedule:
// the initial delay and the consecutive-failure threshold. The venue A
// and venue B adapters do not read it; they use a fixed schedule of a
// 5s initial delay doubling up to 2 minutes and give up after 10
// consecutive failures.
type ReconnectPolicy struct {
	InitialDelaySeconds int
	MaxConsecutiveFails int // persistent-error threshold surfaced to orchestrator
}

// DefaultReconnectPolicy matches the spec's default 5s initial delay.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{InitialDelaySeconds: 5, MaxConsecutiveFails: 10}
}
