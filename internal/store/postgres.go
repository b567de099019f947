package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hydrosense/potability-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS input_cache (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS predictions (
	id         TEXT PRIMARY KEY,
	input      JSONB NOT NULL,
	response   JSONB NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveLastInput(ctx context.Context, input model.WaterQualityInput) error {
	doc, err := json.Marshal(input)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal last input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO input_cache (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		lastInputKey, doc, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save last input")
}

func (s *PostgresStore) LastInput(ctx context.Context) (*model.WaterQualityInput, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM input_cache WHERE key = $1`, lastInputKey,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: load last input")
	}

	var input model.WaterQualityInput
	if err := json.Unmarshal(doc, &input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal last input")
	}
	return &input, nil
}

func (s *PostgresStore) RecordPrediction(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	inputJSON, err := json.Marshal(rec.Input)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal input")
	}
	responseJSON, err := json.Marshal(rec.Response)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal response")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO predictions (id, input, response, source, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, inputJSON, responseJSON, rec.Source, rec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert prediction")
}

func (s *PostgresStore) ListPredictions(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, input, response, source, created_at FROM predictions
		 ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var inputJSON, responseJSON []byte
		if err := rows.Scan(&rec.ID, &inputJSON, &responseJSON, &rec.Source, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		if err := json.Unmarshal(inputJSON, &rec.Input); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal input")
		}
		if err := json.Unmarshal(responseJSON, &rec.Response); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal response")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}
