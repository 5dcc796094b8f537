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

type pairsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMarketPairsRepo builds a Postgres-backed MarketPairsRepo.
func NewMarketPairsRepo(db *sqlx.DB, timeout time.Duration) persistence.MarketPairsRepo {
	return &pairsRepo{db: db, timeout: timeout}
}

func (r *pairsRepo) Upsert(ctx context.Context, p domain.MarketPair) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO market_pairs (id, primary_venue, primary_market_id, hedge_venue, hedge_market_id,
			window_open, window_close, llm_score, hard_rules_passed, active, last_validated, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			window_open = EXCLUDED.window_open,
			window_close = EXCLUDED.window_close,
			llm_score = EXCLUDED.llm_score,
			hard_rules_passed = EXCLUDED.hard_rules_passed,
			active = EXCLUDED.active,
			last_validated = EXCLUDED.last_validated,
			notes = EXCLUDED.notes`,
		p.ID, p.Primary.Venue, p.Primary.VenueMarketID, p.Hedge.Venue, p.Hedge.VenueMarketID,
		p.Window.Open, p.Window.Close, p.LLMScore, p.HardRulesPassed, p.Active, p.LastValidated, p.Notes)
	if err != nil {
		return fmt.Errorf("upsert pair %s: %w", p.ID, err)
	}
	return nil
}

func (r *pairsRepo) Get(ctx context.Context, id string) (*domain.MarketPair, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p domain.MarketPair
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, primary_venue, primary_market_id, hedge_venue, hedge_market_id,
			window_open, window_close, llm_score, hard_rules_passed, active, last_validated, notes
		FROM market_pairs WHERE id = $1`, id)
	err := row.Scan(&p.ID, &p.Primary.Venue, &p.Primary.VenueMarketID, &p.Hedge.Venue, &p.Hedge.VenueMarketID,
		&p.Window.Open, &p.Window.Close, &p.LLMScore, &p.HardRulesPassed, &p.Active, &p.LastValidated, &p.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pair %s: %w", id, err)
	}
	return &p, nil
}

func (r *pairsRepo) ListActive(ctx context.Context) ([]domain.MarketPair, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, primary_venue, primary_market_id, hedge_venue, hedge_market_id,
			window_open, window_close, llm_score, hard_rules_passed, active, last_validated, notes
		FROM market_pairs WHERE active = true AND hard_rules_passed = true`)
	if err != nil {
		return nil, fmt.Errorf("list active pairs: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketPair
	for rows.Next() {
		var p domain.MarketPair
		if err := rows.Scan(&p.ID, &p.Primary.Venue, &p.Primary.VenueMarketID, &p.Hedge.Venue, &p.Hedge.VenueMarketID,
			&p.Window.Open, &p.Window.Close, &p.LLMScore, &p.HardRulesPassed, &p.Active, &p.LastValidated, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pairsRepo) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE market_pairs SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set pair %s active=%v: %w", id, active, err)
	}
	return nil
}
