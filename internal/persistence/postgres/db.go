// Package postgres implements every persistence.*Repo interface against
// Postgres via jmoiron/sqlx and lib/pq, following the teacher's
// persistence/postgres package: one file per table, context-timeout
// wrapped queries, upserts via ON CONFLICT DO UPDATE.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies connectivity with a bounded
// ping, matching the teacher's fail-fast-on-startup connection style.
func Open(ctx context.Context, dsn string, pingTimeout time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
