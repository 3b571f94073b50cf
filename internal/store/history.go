// Package store keeps the bounded recent-results history. Results are
// pushed newest-first and trimmed to a fixed depth; the store is a
// convenience surface, never a source of truth for analysis.
package store

import (
	"context"
	"errors"

	"github.com/glycostack/glyco-engine/internal/models"
)

// History stores the most recent analysis summaries, newest first.
type History interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Close() error
}

// ErrHistoryEmpty signals that no entries have been recorded yet.
var ErrHistoryEmpty = errors.New("history empty")

// NoopHistory implements History but never stores data. It backs
// deployments that run without a history store configured.
type NoopHistory struct{}

// Append discards the entry and returns nil.
func (NoopHistory) Append(context.Context, models.HistoryEntry) error { return nil }

// Recent always returns ErrHistoryEmpty.
func (NoopHistory) Recent(context.Context, int) ([]models.HistoryEntry, error) {
	return nil, ErrHistoryEmpty
}

// Close is a no-op.
func (NoopHistory) Close() error { return nil }
