package moderation

import (
	"context"

	"github.com/iamwavecut/guardbot/internal/db"
)

// Ledger is the durable per-(chat, user) warning counter.
type Ledger interface {
	Increment(ctx context.Context, chatID, userID int64) (int, error)
	Reset(ctx context.Context, chatID, userID int64) error
	Get(ctx context.Context, chatID, userID int64) (int, error)
}

type dbLedger struct {
	store db.Client
}

func NewLedger(store db.Client) *dbLedger {
	return &dbLedger{store: store}
}

func (l *dbLedger) Increment(ctx context.Context, chatID, userID int64) (int, error) {
	return l.store.IncrementWarnings(ctx, chatID, userID)
}

func (l *dbLedger) Reset(ctx context.Context, chatID, userID int64) error {
	return l.store.ResetWarnings(ctx, chatID, userID)
}

func (l *dbLedger) Get(ctx context.Context, chatID, userID int64) (int, error) {
	return l.store.GetWarnings(ctx, chatID, userID)
}
