package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/arbengine/internal/persistence"
)

type configsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewConfigsRepo builds a Postgres-backed ConfigsRepo.
func NewConfigsRepo(db *sqlx.DB, timeout time.Duration) persistence.ConfigsRepo {
	return &configsRepo{db: db, timeout: timeout}
}

func (r *configsRepo) Put(ctx context.Context, key string, version string, value map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal config %s: %w", key, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO configs (key, version, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			version = EXCLUDED.version,
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		key, version, valueJSON)
	if err != nil {
		return fmt.Errorf("put config %s: %w", key, err)
	}
	return nil
}

func (r *configsRepo) Get(ctx context.Context, key string) (string, map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var version string
	var valueJSON []byte
	row := r.db.QueryRowxContext(ctx, `SELECT version, value FROM configs WHERE key = $1`, key)
	err := row.Scan(&version, &valueJSON)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("get config %s: %w", key, err)
	}

	var value map[string]interface{}
	if err := json.Unmarshal(valueJSON, &value); err != nil {
		return "", nil, fmt.Errorf("unmarshal config %s: %w", key, err)
	}
	return version, value, nil
}
