package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type edgesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEdgesRepo builds a Postgres-backed EdgesRepo.
func NewEdgesRepo(db *sqlx.DB, timeout time.Duration) persistence.EdgesRepo {
	return &edgesRepo{db: db, timeout: timeout}
}

func (r *edgesRepo) Insert(ctx context.Context, s domain.EdgeSignal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO edges (pair_id, ts, primary_side, gross_edge_cents, friction_cents, slippage_cents,
			net_edge_cents, confidence, leader, leader_stable, friction_version, hedge_probability, insufficient_liquidity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.PairID, s.Timestamp, s.PrimarySide, s.GrossEdgeCents, s.FrictionCents, s.SlippageCents,
		s.NetEdgeCents, s.Confidence, s.Leader, s.LeaderStable, s.FrictionVersion, s.HedgeProbability, s.InsufficientLiquidity)
	if err != nil {
		return fmt.Errorf("insert edge signal for pair %s: %w", s.PairID, err)
	}
	return nil
}

const selectEdgeColumns = `pair_id, ts, primary_side, gross_edge_cents, friction_cents, slippage_cents,
	net_edge_cents, confidence, leader, leader_stable, friction_version, hedge_probability, insufficient_liquidity`

func scanEdge(scanner interface {
	Scan(...interface{}) error
}) (domain.EdgeSignal, error) {
	var s domain.EdgeSignal
	err := scanner.Scan(&s.PairID, &s.Timestamp, &s.PrimarySide, &s.GrossEdgeCents, &s.FrictionCents, &s.SlippageCents,
		&s.NetEdgeCents, &s.Confidence, &s.Leader, &s.LeaderStable, &s.FrictionVersion, &s.HedgeProbability, &s.InsufficientLiquidity)
	return s, err
}

func (r *edgesRepo) ListByPair(ctx context.Context, pairID string, limit int) ([]domain.EdgeSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT `+selectEdgeColumns+`
		FROM edges WHERE pair_id = $1 ORDER BY ts DESC LIMIT $2`, pairID, limit)
	if err != nil {
		return nil, fmt.Errorf("list edges for pair %s: %w", pairID, err)
	}
	defer rows.Close()

	var out []domain.EdgeSignal
	for rows.Next() {
		s, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *edgesRepo) ListRecent(ctx context.Context, limit int) ([]domain.EdgeSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT `+selectEdgeColumns+`
		FROM edges ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent edges: %w", err)
	}
	defer rows.Close()

	var out []domain.EdgeSignal
	for rows.Next() {
		s, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
