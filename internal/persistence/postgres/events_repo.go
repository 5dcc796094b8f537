package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/arbengine/internal/persistence"
)

type eventsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEventsRepo builds a Postgres-backed EventsRepo for the
// append-only audit trail.
func NewEventsRepo(db *sqlx.DB, timeout time.Duration) persistence.EventsRepo {
	return &eventsRepo{db: db, timeout: timeout}
}

func (r *eventsRepo) Insert(ctx context.Context, e persistence.Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload for %s: %w", e.Kind, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (ts, kind, pair_id, payload)
		VALUES ($1, $2, $3, $4)`,
		e.Timestamp, e.Kind, e.PairID, payloadJSON)
	if err != nil {
		return fmt.Errorf("insert event %s for pair %s: %w", e.Kind, e.PairID, err)
	}
	return nil
}

func scanEvent(scanner interface {
	Scan(...interface{}) error
}) (persistence.Event, error) {
	var e persistence.Event
	var payloadJSON []byte
	err := scanner.Scan(&e.ID, &e.Timestamp, &e.Kind, &e.PairID, &payloadJSON)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
		return e, fmt.Errorf("unmarshal event payload: %w", err)
	}
	return e, nil
}

func (r *eventsRepo) ListByPair(ctx context.Context, pairID string, limit int) ([]persistence.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, ts, kind, pair_id, payload FROM events
		WHERE pair_id = $1 ORDER BY ts DESC LIMIT $2`, pairID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for pair %s: %w", pairID, err)
	}
	defer rows.Close()

	var out []persistence.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventsRepo) ListRecent(ctx context.Context, limit int) ([]persistence.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, ts, kind, pair_id, payload FROM events
		ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()

	var out []persistence.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
