package store

import (
	"context"
	"sync"

	"github.com/glycostack/glyco-engine/internal/models"
)

// MemoryHistory is a process-local bounded history. It backs single-node
// deployments and tests; entries do not survive a restart.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	max     int
}

// NewMemoryHistory builds a ring holding at most max entries.
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = 50
	}
	return &MemoryHistory{max: max}
}

// Append prepends the entry and drops the oldest beyond the cap.
func (m *MemoryHistory) Append(_ context.Context, entry models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]models.HistoryEntry{entry}, m.entries...)
	if len(m.entries) > m.max {
		m.entries = m.entries[:m.max]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryHistory) Recent(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil, ErrHistoryEmpty
	}
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]models.HistoryEntry, limit)
	copy(out, m.entries[:limit])
	return out, nil
}

// Close is a no-op.
func (m *MemoryHistory) Close() error { return nil }
