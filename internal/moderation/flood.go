package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Tracker keeps a trailing window of message timestamps per (chat, user) key
// and reports when the flood threshold is crossed. A triggered window is
// cleared so the next burst has to reaccumulate from zero.
type Tracker interface {
	RecordAndCheck(ctx context.Context, chatID, userID int64, ts time.Time) (bool, error)
	Clear(ctx context.Context, chatID, userID int64) error
}

const trackedWindows = 16384

type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

type memTracker struct {
	limit   int
	period  time.Duration
	windows *lru.Cache[string, *window]
}

func NewMemTracker(limit int, period time.Duration) (*memTracker, error) {
	windows, err := lru.New[string, *window](trackedWindows)
	if err != nil {
		return nil, fmt.Errorf("create window cache: %w", err)
	}
	return &memTracker{
		limit:   limit,
		period:  period,
		windows: windows,
	}, nil
}

func floodKey(chatID, userID int64) string {
	return fmt.Sprintf("%d/%d", chatID, userID)
}

func (t *memTracker) RecordAndCheck(ctx context.Context, chatID, userID int64, ts time.Time) (bool, error) {
	key := floodKey(chatID, userID)
	w, ok := t.windows.Get(key)
	if !ok {
		w = &window{}
		if prev, existed, _ := t.windows.PeekOrAdd(key, w); existed {
			w = prev
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := ts.Add(-t.period)
	kept := w.stamps[:0]
	for _, stamp := range w.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	w.stamps = append(kept, ts)

	if len(w.stamps) > t.limit {
		w.stamps = w.stamps[:0]
		return true, nil
	}
	return false, nil
}

func (t *memTracker) Clear(ctx context.Context, chatID, userID int64) error {
	if w, ok := t.windows.Get(floodKey(chatID, userID)); ok {
		w.mu.Lock()
		w.stamps = w.stamps[:0]
		w.mu.Unlock()
	}
	return nil
}
