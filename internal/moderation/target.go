package moderation

import (
	"strconv"
	"time"

	"github.com/iamwavecut/guardbot/internal/errors"
)

// ResolveTarget extracts the user an admin command acts upon. Precedence:
// reply-to sender, explicit numeric ID argument, text_mention entity.
func ResolveTarget(ev CommandEvent) (*TargetRef, error) {
	if ev.ReplyToUserID != 0 {
		return &TargetRef{UserID: ev.ReplyToUserID, Name: ev.ReplyToUserName}, nil
	}
	if len(ev.Args) > 0 {
		if id, err := strconv.ParseInt(ev.Args[0], 10, 64); err == nil && id != 0 {
			return &TargetRef{UserID: id, Name: ev.Args[0]}, nil
		}
	}
	for _, entity := range ev.Entities {
		if entity.Type == EntityTypeTextMention && entity.UserID != 0 {
			return &TargetRef{UserID: entity.UserID}, nil
		}
	}
	return nil, errors.ErrUnresolvableTarget
}

const defaultRestrictDuration = time.Hour

// ParseRestrictDuration reads the first argument shaped like 10m, 2h or 1d.
func ParseRestrictDuration(args []string) time.Duration {
	for _, arg := range args {
		if len(arg) < 2 {
			continue
		}
		value, err := strconv.Atoi(arg[:len(arg)-1])
		if err != nil || value <= 0 {
			continue
		}
		switch arg[len(arg)-1] {
		case 'm':
			return time.Duration(value) * time.Minute
		case 'h':
			return time.Duration(value) * time.Hour
		case 'd':
			return time.Duration(value) * 24 * time.Hour
		}
	}
	return defaultRestrictDuration
}
