// Package store persists confirmed transactions and learned category
// preferences.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/insightdelivered/slip-scanner/internal/models"
)

// ErrNotFound is returned when a transaction id is unknown.
var ErrNotFound = errors.New("transaction not found")

// Repository is implemented by the memory and SQLite stores.
type Repository interface {
	// Save inserts transactions, replacing any with the same id.
	Save(ctx context.Context, txs ...models.Transaction) error
	Get(ctx context.Context, id string) (models.Transaction, error)
	// List returns transactions in the order they were first saved.
	List(ctx context.Context) ([]models.Transaction, error)
	UpdateCategory(ctx context.Context, id, category string) (models.Transaction, error)
	Delete(ctx context.Context, id string) error

	// Preferences returns a snapshot of the learned receiver categories.
	Preferences(ctx context.Context) (models.Preferences, error)
	// ReplacePreferences stores prefs as the new snapshot.
	ReplacePreferences(ctx context.Context, prefs models.Preferences) error

	Close() error
}

// Open returns the repository for backend ("memory" or "sqlite").
func Open(backend, sqlitePath string) (Repository, error) {
	switch backend {
	case "memory", "":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", backend)
	}
}
