package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type positionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionsRepo builds a Postgres-backed PositionsRepo. ApplyDelta
// is the only writer and is read-modify-write under a transaction-scoped
// advisory lock keyed by (venue, market_id), so concurrent fills against
// the same key accumulate correctly instead of racing, including the
// first fill that creates the row.
func NewPositionsRepo(db *sqlx.DB, timeout time.Duration) persistence.PositionsRepo {
	return &positionsRepo{db: db, timeout: timeout}
}

func (r *positionsRepo) ApplyDelta(ctx context.Context, venue domain.Venue, marketID string, sizeDelta, notionalDelta float64) (persistence.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistence.Position{}, fmt.Errorf("begin position delta: %w", err)
	}
	defer tx.Rollback()

	// FOR UPDATE below locks nothing while the row does not exist yet,
	// so every delta for this key is serialized here first.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || '/' || $2::text))`, string(venue), marketID); err != nil {
		return persistence.Position{}, fmt.Errorf("lock position %s/%s: %w", venue, marketID, err)
	}

	var pos persistence.Position
	pos.Venue, pos.MarketID = venue, marketID
	row := tx.QueryRowxContext(ctx, `
		SELECT net_size, notional_usd, updated_at FROM positions
		WHERE venue = $1 AND market_id = $2 FOR UPDATE`, venue, marketID)
	err = row.Scan(&pos.NetSize, &pos.NotionalUSD, &pos.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		return persistence.Position{}, fmt.Errorf("lock position %s/%s: %w", venue, marketID, err)
	}

	pos.NetSize += sizeDelta
	pos.NotionalUSD += notionalDelta

	_, err = tx.ExecContext(ctx, `
		INSERT INTO positions (venue, market_id, net_size, notional_usd, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (venue, market_id) DO UPDATE SET
			net_size = EXCLUDED.net_size,
			notional_usd = EXCLUDED.notional_usd,
			updated_at = EXCLUDED.updated_at`,
		venue, marketID, pos.NetSize, pos.NotionalUSD)
	if err != nil {
		return persistence.Position{}, fmt.Errorf("apply position delta %s/%s: %w", venue, marketID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.Position{}, fmt.Errorf("commit position delta %s/%s: %w", venue, marketID, err)
	}
	return pos, nil
}

func (r *positionsRepo) Get(ctx context.Context, venue domain.Venue, marketID string) (*persistence.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var pos persistence.Position
	pos.Venue, pos.MarketID = venue, marketID
	row := r.db.QueryRowxContext(ctx, `
		SELECT net_size, notional_usd, updated_at FROM positions WHERE venue = $1 AND market_id = $2`, venue, marketID)
	err := row.Scan(&pos.NetSize, &pos.NotionalUSD, &pos.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", venue, marketID, err)
	}
	return &pos, nil
}

func (r *positionsRepo) ListAll(ctx context.Context) ([]persistence.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT venue, market_id, net_size, notional_usd, updated_at FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []persistence.Position
	for rows.Next() {
		var pos persistence.Position
		if err := rows.Scan(&pos.Venue, &pos.MarketID, &pos.NetSize, &pos.NotionalUSD, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}
