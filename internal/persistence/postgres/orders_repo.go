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

type ordersRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOrdersRepo builds a Postgres-backed OrdersRepo.
func NewOrdersRepo(db *sqlx.DB, timeout time.Duration) persistence.OrdersRepo {
	return &ordersRepo{db: db, timeout: timeout}
}

const upsertOrderQuery = `
INSERT INTO orders (id, intent_id, venue, market_id, side, price, quantity, sent_at, acked_at, status, venue_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	acked_at = EXCLUDED.acked_at,
	status = EXCLUDED.status,
	venue_order_id = EXCLUDED.venue_order_id`

const selectOrderColumns = `id, intent_id, venue, market_id, side, price, quantity, sent_at, acked_at, status, venue_order_id`

func (r *ordersRepo) Upsert(ctx context.Context, o domain.OrderRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, upsertOrderQuery,
		o.ID, o.IntentID, o.Venue, o.MarketID, o.Side, o.Price, o.Quantity, o.SentAt, o.AckedAt, o.Status, o.VenueOrderID)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}
	return nil
}

func scanOrder(scanner interface {
	Scan(...interface{}) error
}) (domain.OrderRecord, error) {
	var o domain.OrderRecord
	err := scanner.Scan(&o.ID, &o.IntentID, &o.Venue, &o.MarketID, &o.Side, &o.Price, &o.Quantity,
		&o.SentAt, &o.AckedAt, &o.Status, &o.VenueOrderID)
	return o, err
}

func (r *ordersRepo) Get(ctx context.Context, id string) (*domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &o, nil
}

func (r *ordersRepo) ListByIntent(ctx context.Context, intentID string) ([]domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE intent_id = $1 ORDER BY sent_at ASC`, intentID)
	if err != nil {
		return nil, fmt.Errorf("list orders for intent %s: %w", intentID, err)
	}
	defer rows.Close()

	var out []domain.OrderRecord
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *ordersRepo) ListRecent(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT `+selectOrderColumns+` FROM orders ORDER BY sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderRecord
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
