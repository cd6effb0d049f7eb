package moderation

import (
	"context"
	"time"
)

type Membership struct {
	IsAdmin bool
	IsOwner bool
}

// ActionPort is the transport-side surface the enforcement engine acts
// through. Implementations wrap the chat platform client and own its
// timeouts.
type ActionPort interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	Restrict(ctx context.Context, chatID, userID int64, canSend bool, until time.Time) error
	Ban(ctx context.Context, chatID, userID int64, until time.Time) error
	Unban(ctx context.Context, chatID, userID int64) error
	GetMembership(ctx context.Context, chatID, userID int64) (*Membership, error)
}

// NoticeScheduler removes transient bot messages after a delay, best-effort.
type NoticeScheduler interface {
	ScheduleDelete(chatID int64, messageID int, delay time.Duration)
}
