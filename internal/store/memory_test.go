package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glycostack/glyco-engine/internal/models"
)

func TestMemoryHistoryEmpty(t *testing.T) {
	h := NewMemoryHistory(5)
	_, err := h.Recent(context.Background(), 10)
	if !errors.Is(err, ErrHistoryEmpty) {
		t.Fatalf("expected ErrHistoryEmpty, got %v", err)
	}
}

func TestMemoryHistoryNewestFirst(t *testing.T) {
	h := NewMemoryHistory(5)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		entry := models.HistoryEntry{ID: fmt.Sprintf("entry-%d", i), Kind: "analyze"}
		if err := h.Append(ctx, entry); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	entries, err := h.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "entry-2" {
		t.Fatalf("expected newest entry first, got %q", entries[0].ID)
	}
}

func TestMemoryHistoryTrimsToCap(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = h.Append(ctx, models.HistoryEntry{ID: fmt.Sprintf("entry-%d", i)})
	}

	entries, err := h.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected cap of 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "entry-4" || entries[1].ID != "entry-3" {
		t.Fatalf("expected the two newest entries, got %q and %q", entries[0].ID, entries[1].ID)
	}
}

func TestMemoryHistoryLimit(t *testing.T) {
	h := NewMemoryHistory(10)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_ = h.Append(ctx, models.HistoryEntry{ID: fmt.Sprintf("entry-%d", i)})
	}

	entries, err := h.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(entries))
	}
}

func TestNoopHistory(t *testing.T) {
	h := NoopHistory{}
	if err := h.Append(context.Background(), models.HistoryEntry{ID: "x"}); err != nil {
		t.Fatalf("noop append must not fail: %v", err)
	}
	if _, err := h.Recent(context.Background(), 1); !errors.Is(err, ErrHistoryEmpty) {
		t.Fatalf("noop recent must report empty, got %v", err)
	}
}
