// Package store persists the last validated input and the prediction
// history, with SQLite and Postgres backends behind one interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hydrosense/potability-cli/internal/model"
)

// lastInputKey is the single well-known key under which the last validated
// input document is cached.
const lastInputKey = "last_input"

// Record is one persisted prediction outcome.
type Record struct {
	ID        string                   `json:"id"`
	Input     model.WaterQualityInput  `json:"input"`
	Response  model.PredictionResponse `json:"response"`
	Source    string                   `json:"source"`
	CreatedAt time.Time                `json:"created_at"`
}

// Store defines the persistence operations for the prediction flow.
type Store interface {
	Migrate(ctx context.Context) error

	// SaveLastInput overwrites the cached last validated input. It is
	// written only after validation succeeds.
	SaveLastInput(ctx context.Context, input model.WaterQualityInput) error
	// LastInput returns the cached input, or (nil, nil) when none is stored.
	LastInput(ctx context.Context) (*model.WaterQualityInput, error)

	RecordPrediction(ctx context.Context, rec *Record) error
	// ListPredictions returns up to limit records, newest first.
	ListPredictions(ctx context.Context, limit int) ([]Record, error)

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`                 // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres DSN
}

// Open creates the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
