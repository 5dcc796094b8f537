package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type marketsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMarketsRepo builds a Postgres-backed MarketsRepo.
func NewMarketsRepo(db *sqlx.DB, timeout time.Duration) persistence.MarketsRepo {
	return &marketsRepo{db: db, timeout: timeout}
}

const upsertMarketQuery = `
INSERT INTO markets (id, venue, venue_ticker, title, event_name, resolution_source, open_time, close_time, category, tags, is_binary, liquidity_usd)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (venue, id) DO UPDATE SET
	venue_ticker = EXCLUDED.venue_ticker,
	title = EXCLUDED.title,
	event_name = EXCLUDED.event_name,
	resolution_source = EXCLUDED.resolution_source,
	open_time = EXCLUDED.open_time,
	close_time = EXCLUDED.close_time,
	category = EXCLUDED.category,
	tags = EXCLUDED.tags,
	is_binary = EXCLUDED.is_binary,
	liquidity_usd = EXCLUDED.liquidity_usd`

func (r *marketsRepo) Upsert(ctx context.Context, m domain.Market) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, upsertMarketQuery,
		m.ID, m.Venue, m.VenueTicker, m.Title, m.EventName, m.ResolutionSource,
		m.OpenTime, m.CloseTime, m.Category, pq.Array(m.Tags), m.IsBinary, m.LiquidityUSD)
	if err != nil {
		return fmt.Errorf("upsert market %s/%s: %w", m.Venue, m.ID, err)
	}
	return nil
}

func (r *marketsRepo) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(markets)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin market upsert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertMarketQuery)
	if err != nil {
		return fmt.Errorf("prepare market upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range markets {
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Venue, m.VenueTicker, m.Title, m.EventName, m.ResolutionSource,
			m.OpenTime, m.CloseTime, m.Category, pq.Array(m.Tags), m.IsBinary, m.LiquidityUSD); err != nil {
			return fmt.Errorf("upsert market %s/%s in batch: %w", m.Venue, m.ID, err)
		}
	}
	return tx.Commit()
}

func (r *marketsRepo) Get(ctx context.Context, venue domain.Venue, marketID string) (*domain.Market, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var m domain.Market
	var tags pq.StringArray
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, venue, venue_ticker, title, event_name, resolution_source, open_time, close_time, category, tags, is_binary, liquidity_usd
		FROM markets WHERE venue = $1 AND id = $2`, venue, marketID)
	err := row.Scan(&m.ID, &m.Venue, &m.VenueTicker, &m.Title, &m.EventName, &m.ResolutionSource,
		&m.OpenTime, &m.CloseTime, &m.Category, &tags, &m.IsBinary, &m.LiquidityUSD)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get market %s/%s: %w", venue, marketID, err)
	}
	m.Tags = tags
	return &m, nil
}

func (r *marketsRepo) ListByVenue(ctx context.Context, venue domain.Venue) ([]domain.Market, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, venue, venue_ticker, title, event_name, resolution_source, open_time, close_time, category, tags, is_binary, liquidity_usd
		FROM markets WHERE venue = $1`, venue)
	if err != nil {
		return nil, fmt.Errorf("list markets for venue %s: %w", venue, err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		var m domain.Market
		var tags pq.StringArray
		if err := rows.Scan(&m.ID, &m.Venue, &m.VenueTicker, &m.Title, &m.EventName, &m.ResolutionSource,
			&m.OpenTime, &m.CloseTime, &m.Category, &tags, &m.IsBinary, &m.LiquidityUSD); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		m.Tags = tags
		out = append(out, m)
	}
	return out, rows.Err()
}
