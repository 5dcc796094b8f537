// Package persistence defines the repository interfaces for the nine
// tables: events, markets, market_pairs, orderbooks, edges, orders,
// fills, positions, configs. Modeled on the teacher's
// persistence/interfaces.go repo-per-table split; concrete
// implementations live under postgres/.
package persistence

import (
	"context"
	"time"

	"github.com/arbengine/arbengine/internal/domain"
)

// TimeRange bounds a time-windowed query, reused across every repo.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Event is an append-only audit record: a pair validated, a signal
// emitted, an execution attempted, a risk rejection, etc.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	PairID    string
	Payload   map[string]interface{}
}

// EventsRepo persists the audit trail.
type EventsRepo interface {
	Insert(ctx context.Context, event Event) error
	ListByPair(ctx context.Context, pairID string, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// MarketsRepo persists the venue catalogs, upserted on every matching
// pass since venue catalogs change over time.
type MarketsRepo interface {
	Upsert(ctx context.Context, market domain.Market) error
	UpsertBatch(ctx context.Context, markets []domain.Market) error
	Get(ctx context.Context, venue domain.Venue, marketID string) (*domain.Market, error)
	ListByVenue(ctx context.Context, venue domain.Venue) ([]domain.Market, error)
}

// MarketPairsRepo persists the validated cross-venue pairs.
type MarketPairsRepo interface {
	Upsert(ctx context.Context, pair domain.MarketPair) error
	Get(ctx context.Context, id string) (*domain.MarketPair, error)
	ListActive(ctx context.Context) ([]domain.MarketPair, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// OrderbooksRepo persists periodic book snapshots for backtesting and
// auditing; not every tick is retained, only sampled snapshots.
type OrderbooksRepo interface {
	Insert(ctx context.Context, snapshot domain.BookSnapshot) error
	ListForReplay(ctx context.Context, venue domain.Venue, marketID string, tr TimeRange) ([]domain.BookSnapshot, error)
}

// EdgesRepo persists computed EdgeSignals.
type EdgesRepo interface {
	Insert(ctx context.Context, signal domain.EdgeSignal) error
	ListByPair(ctx context.Context, pairID string, limit int) ([]domain.EdgeSignal, error)
	ListRecent(ctx context.Context, limit int) ([]domain.EdgeSignal, error)
}

// OrdersRepo persists placed orders, upserted as their venue-reported
// status advances.
type OrdersRepo interface {
	Upsert(ctx context.Context, order domain.OrderRecord) error
	Get(ctx context.Context, id string) (*domain.OrderRecord, error)
	ListByIntent(ctx context.Context, intentID string) ([]domain.OrderRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.OrderRecord, error)
}

// FillsRepo persists realized fills against orders.
type FillsRepo interface {
	Insert(ctx context.Context, fill domain.Fill) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.Fill, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Fill, error)
}

// Position is the read-modify-write accumulated exposure for one
// venue/market, used by the risk manager and exposure API.
type Position struct {
	Venue      domain.Venue
	MarketID   string
	NetSize    float64
	NotionalUSD float64
	UpdatedAt  time.Time
}

// PositionsRepo persists the latest exposure per (venue, market_id),
// applied as a read-modify-write delta after every fill.
type PositionsRepo interface {
	ApplyDelta(ctx context.Context, venue domain.Venue, marketID string, sizeDelta, notionalDelta float64) (Position, error)
	Get(ctx context.Context, venue domain.Venue, marketID string) (*Position, error)
	ListAll(ctx context.Context) ([]Position, error)
}

// ConfigsRepo persists versioned runtime configuration snapshots (for
// example friction packs), so an EdgeSignal's FrictionVersion can be
// traced back to the exact config in force when it was computed.
type ConfigsRepo interface {
	Put(ctx context.Context, key string, version string, value map[string]interface{}) error
	Get(ctx context.Context, key string) (version string, value map[string]interface{}, err error)
}
