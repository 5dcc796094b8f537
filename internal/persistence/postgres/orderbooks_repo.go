package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type orderbooksRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOrderbooksRepo builds a Postgres-backed OrderbooksRepo. Snapshots
// are sampled (not every tick) and stored with bids/asks as JSONB for
// replay, since the level count varies per venue and depth.
func NewOrderbooksRepo(db *sqlx.DB, timeout time.Duration) persistence.OrderbooksRepo {
	return &orderbooksRepo{db: db, timeout: timeout}
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func toWireLevels(levels []domain.BookLevel) []wireLevel {
	out := make([]wireLevel, len(levels))
	for i, l := range levels {
		out[i] = wireLevel{Price: l.Price.String(), Size: l.Size.String()}
	}
	return out
}

func fromWireLevels(levels []wireLevel) []domain.BookLevel {
	out := make([]domain.BookLevel, len(levels))
	for i, l := range levels {
		price, _ := decimal.NewFromString(l.Price)
		size, _ := decimal.NewFromString(l.Size)
		out[i] = domain.BookLevel{Price: price, Size: size}
	}
	return out
}

func (r *orderbooksRepo) Insert(ctx context.Context, snap domain.BookSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bidsJSON, err := json.Marshal(toWireLevels(snap.Bids))
	if err != nil {
		return fmt.Errorf("marshal bids: %w", err)
	}
	asksJSON, err := json.Marshal(toWireLevels(snap.Asks))
	if err != nil {
		return fmt.Errorf("marshal asks: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orderbooks (venue, market_id, ts, bids, asks)
		VALUES ($1, $2, $3, $4, $5)`,
		snap.Market.Venue, snap.Market.VenueMarketID, snap.Timestamp, bidsJSON, asksJSON)
	if err != nil {
		return fmt.Errorf("insert orderbook snapshot %s/%s: %w", snap.Market.Venue, snap.Market.VenueMarketID, err)
	}
	return nil
}

func (r *orderbooksRepo) ListForReplay(ctx context.Context, venue domain.Venue, marketID string, tr persistence.TimeRange) ([]domain.BookSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT venue, market_id, ts, bids, asks
		FROM orderbooks
		WHERE venue = $1 AND market_id = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC`, venue, marketID, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("list orderbooks for replay %s/%s: %w", venue, marketID, err)
	}
	defer rows.Close()

	var out []domain.BookSnapshot
	for rows.Next() {
		var snap domain.BookSnapshot
		var bidsJSON, asksJSON []byte
		if err := rows.Scan(&snap.Market.Venue, &snap.Market.VenueMarketID, &snap.Timestamp, &bidsJSON, &asksJSON); err != nil {
			return nil, fmt.Errorf("scan orderbook snapshot: %w", err)
		}
		var bids, asks []wireLevel
		if err := json.Unmarshal(bidsJSON, &bids); err != nil {
			return nil, fmt.Errorf("unmarshal bids: %w", err)
		}
		if err := json.Unmarshal(asksJSON, &asks); err != nil {
			return nil, fmt.Errorf("unmarshal asks: %w", err)
		}
		snap.Bids = fromWireLevels(bids)
		snap.Asks = fromWireLevels(asks)
		out = append(out, snap)
	}
	return out, rows.Err()
}
