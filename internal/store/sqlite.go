package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hydrosense/potability-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "potability.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS input_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS predictions (
	id         TEXT PRIMARY KEY,
	input      TEXT NOT NULL,
	response   TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveLastInput(ctx context.Context, input model.WaterQualityInput) error {
	doc, err := json.Marshal(input)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal last input")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO input_cache (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastInputKey, string(doc), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save last input")
}

func (s *SQLiteStore) LastInput(ctx context.Context) (*model.WaterQualityInput, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM input_cache WHERE key = ?`, lastInputKey,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: load last input")
	}

	var input model.WaterQualityInput
	if err := json.Unmarshal([]byte(doc), &input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal last input")
	}
	return &input, nil
}

func (s *SQLiteStore) RecordPrediction(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	inputJSON, err := json.Marshal(rec.Input)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal input")
	}
	responseJSON, err := json.Marshal(rec.Response)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal response")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, input, response, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(inputJSON), string(responseJSON), rec.Source, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert prediction")
}

func (s *SQLiteStore) ListPredictions(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, response, source, created_at FROM predictions
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var inputJSON, responseJSON string
		if err := rows.Scan(&rec.ID, &inputJSON, &responseJSON, &rec.Source, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		if err := json.Unmarshal([]byte(inputJSON), &rec.Input); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal input")
		}
		if err := json.Unmarshal([]byte(responseJSON), &rec.Response); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal response")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}
