package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type fillsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewFillsRepo builds a Postgres-backed FillsRepo.
func NewFillsRepo(db *sqlx.DB, timeout time.Duration) persistence.FillsRepo {
	return &fillsRepo{db: db, timeout: timeout}
}

const selectFillColumns = `order_id, price, quantity, filled_at, fee_cents, slippage_cents`

func (r *fillsRepo) Insert(ctx context.Context, f domain.Fill) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fills (order_id, price, quantity, filled_at, fee_cents, slippage_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.OrderID, f.Price, f.Quantity, f.FilledAt, f.FeeCents, f.SlippageCents)
	if err != nil {
		return fmt.Errorf("insert fill for order %s: %w", f.OrderID, err)
	}
	return nil
}

func scanFill(scanner interface {
	Scan(...interface{}) error
}) (domain.Fill, error) {
	var f domain.Fill
	err := scanner.Scan(&f.OrderID, &f.Price, &f.Quantity, &f.FilledAt, &f.FeeCents, &f.SlippageCents)
	return f, err
}

func (r *fillsRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT `+selectFillColumns+` FROM fills WHERE order_id = $1 ORDER BY filled_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list fills for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.Fill
	for rows.Next() {
		f, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *fillsRepo) ListRecent(ctx context.Context, limit int) ([]domain.Fill, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT `+selectFillColumns+` FROM fills ORDER BY filled_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent fills: %w", err)
	}
	defer rows.Close()

	var out []domain.Fill
	for rows.Next() {
		f, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
