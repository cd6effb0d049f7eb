package moderation

import "time"

// Entity is a structural message annotation, normalized from the transport
// layer so classification does not depend on the bot API types.
type Entity struct {
	Type   string
	URL    string
	UserID int64
}

const (
	EntityTypeURL         = "url"
	EntityTypeTextLink    = "text_link"
	EntityTypeTextMention = "text_mention"
)

type MessageEvent struct {
	ChatID      int64
	UserID      int64
	MessageID   int
	UserName    string
	Text        string
	Caption     string
	Entities    []Entity
	IsForwarded bool
	Timestamp   time.Time
	Language    string
}

type CommandEvent struct {
	ChatID          int64
	ActorID         int64
	MessageID       int
	Command         string
	Args            []string
	Entities        []Entity
	ReplyToUserID   int64
	ReplyToUserName string
	Language        string
}

// TargetRef identifies the user an admin command acts upon.
type TargetRef struct {
	UserID int64
	Name   string
}
