package ingest

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arbengine/arbengine/internal/domain"
)

// Orchestrator runs one goroutine per adapter, fanning into a shared
// bounded channel, and fails on the first unrecoverable adapter error
// — grounded on the feed-simulator pack's errgroup-based fan-in and
// the teacher's circuit-breaker-per-provider convention.
type Orchestrator struct {
	adapters []Adapter
	opts     Options
	fanin    *BoundedFanIn
	log      zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given adapters.
func NewOrchestrator(adapters []Adapter, opts Options, bufferCapacity int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		opts:     opts,
		fanin:    NewBoundedFanIn(bufferCapacity),
		log:      log,
	}
}

// Snapshots returns the merged, order-preserving-per-market stream.
func (o *Orchestrator) Snapshots() <-chan domain.BookSnapshot { return o.fanin.Out() }

// Run awaits all adapters concurrently via errgroup and returns the
// first unrecoverable error, cancelling the remaining adapters.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, a := range o.adapters {
		adapter := a
		g.Go(func() error {
			local := make(chan domain.BookSnapshot, 256)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for s := range local {
					o.fanin.Push(s)
				}
			}()
			err := adapter.SubscribeBooks(ctx, local, o.opts.TrackedMarkets, o.opts.MaxDepth)
			close(local)
			<-done
			if err != nil {
				o.log.Error().Err(err).Str("venue", string(adapter.Venue())).Msg("adapter failed permanently")
			}
			return err
		})
	}
	return g.Wait()
}
