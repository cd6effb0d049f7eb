package moderation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/errors"
	"github.com/iamwavecut/guardbot/internal/i18n"
	"github.com/iamwavecut/guardbot/internal/observability"
)

type ActionKind string

const (
	ActionNone       ActionKind = "none"
	ActionDeleteWarn ActionKind = "delete_warn"
	ActionFloodMute  ActionKind = "flood_mute"
	ActionWarn       ActionKind = "warn"
	ActionMute       ActionKind = "mute"
	ActionUnmute     ActionKind = "unmute"
	ActionKick       ActionKind = "kick"
	ActionBan        ActionKind = "ban"
	ActionUnban      ActionKind = "unban"
	ActionRefused    ActionKind = "refused"
)

// ActionTaken describes the outcome of one enforcement evaluation.
type ActionTaken struct {
	Kind      ActionKind
	Violation ViolationKind
	WarnCount int
}

const kickBanDuration = time.Minute

// Enforcer evaluates the moderation decision table for each event and issues
// the resulting actions through the ActionPort. Externally-visible actions
// are independent best-effort steps, one failing does not abort its siblings.
type Enforcer struct {
	port       ActionPort
	ledger     Ledger
	tracker    Tracker
	privileges PrivilegeChecker
	policy     *Policy
	notices    NoticeScheduler
	selfID     int64
}

func NewEnforcer(
	port ActionPort,
	ledger Ledger,
	tracker Tracker,
	privileges PrivilegeChecker,
	policy *Policy,
	notices NoticeScheduler,
	selfID int64,
) *Enforcer {
	return &Enforcer{
		port:       port,
		ledger:     ledger,
		tracker:    tracker,
		privileges: privileges,
		policy:     policy,
		notices:    notices,
		selfID:     selfID,
	}
}

// HandleMessage runs a message event through classification and flood
// tracking and enforces whichever fired. Content violations win over the
// flood flag, a single action per message.
func (e *Enforcer) HandleMessage(ctx context.Context, ev MessageEvent) (*ActionTaken, error) {
	if ev.UserID == e.selfID {
		return &ActionTaken{Kind: ActionNone}, nil
	}

	violation := e.policy.Classify(ev.Text, ev.Caption, ev.Entities, ev.IsForwarded)

	flooding, err := e.tracker.RecordAndCheck(ctx, ev.ChatID, ev.UserID, ev.Timestamp)
	if err != nil {
		log.WithFields(log.Fields{
			"chat_id": ev.ChatID,
			"user_id": ev.UserID,
			"error":   err.Error(),
		}).Error("flood tracker failed")
		flooding = false
	}

	if violation == ViolationNone && !flooding {
		return &ActionTaken{Kind: ActionNone}, nil
	}

	if e.privileges.IsPrivileged(ctx, ev.ChatID, ev.UserID) {
		// an admin speaking clears their own window, it never counts
		// against them
		if err := e.tracker.Clear(ctx, ev.ChatID, ev.UserID); err != nil {
			log.WithField("error", err.Error()).Warn("cant clear privileged actor window")
		}
		return &ActionTaken{Kind: ActionNone}, nil
	}

	if violation != ViolationNone {
		observability.RecordViolation(string(violation))
		return e.enforceViolation(ctx, ev, violation)
	}

	observability.RecordViolation("flood")
	return e.enforceFlood(ctx, ev)
}

func (e *Enforcer) enforceViolation(ctx context.Context, ev MessageEvent, violation ViolationKind) (*ActionTaken, error) {
	e.bestEffort(ctx, ActionDeleteWarn, "delete message", func() error {
		return e.port.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
	})

	count, err := e.ledger.Increment(ctx, ev.ChatID, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("increment warnings: %w", err)
	}

	reason := i18n.Get(e.policy.NoticeReason(violation), ev.Language)
	e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("Your message was deleted: %s", ev.Language), reason))

	if count >= e.policy.WarnThreshold {
		e.kick(ctx, ev.ChatID, ev.UserID)
		if err := e.ledger.Reset(ctx, ev.ChatID, ev.UserID); err != nil {
			return nil, fmt.Errorf("reset warnings after kick: %w", err)
		}
		e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("%s was kicked after reaching the warning limit", ev.Language), ev.UserName))
		return &ActionTaken{Kind: ActionKick, Violation: violation, WarnCount: 0}, nil
	}

	e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("%s, you have been warned (%d/%d)", ev.Language), ev.UserName, count, e.policy.WarnThreshold))
	return &ActionTaken{Kind: ActionDeleteWarn, Violation: violation, WarnCount: count}, nil
}

func (e *Enforcer) enforceFlood(ctx context.Context, ev MessageEvent) (*ActionTaken, error) {
	e.bestEffort(ctx, ActionFloodMute, "restrict flooding user", func() error {
		return e.port.Restrict(ctx, ev.ChatID, ev.UserID, false, time.Now().Add(e.policy.MuteDuration))
	})
	e.bestEffort(ctx, ActionFloodMute, "delete flooding message", func() error {
		return e.port.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
	})
	reason := i18n.Get("message flooding", ev.Language)
	e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("%s was muted for %s: %s", ev.Language), ev.UserName, e.policy.MuteDuration, reason))
	return &ActionTaken{Kind: ActionFloodMute}, nil
}

// Warn handles an explicit /warn on a target.
func (e *Enforcer) Warn(ctx context.Context, ev CommandEvent, target TargetRef) (*ActionTaken, error) {
	if refused := e.refuseOnPrivileged(ctx, ev, target); refused != nil {
		return refused, nil
	}

	count, err := e.ledger.Increment(ctx, ev.ChatID, target.UserID)
	if err != nil {
		return nil, fmt.Errorf("increment warnings: %w", err)
	}
	if count >= e.policy.WarnThreshold {
		e.kick(ctx, ev.ChatID, target.UserID)
		if err := e.ledger.Reset(ctx, ev.ChatID, target.UserID); err != nil {
			return nil, fmt.Errorf("reset warnings after kick: %w", err)
		}
		e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("%s was kicked after reaching the warning limit", ev.Language), target.Name))
		return &ActionTaken{Kind: ActionKick, WarnCount: 0}, nil
	}

	e.sendTransient(ctx, ev.ChatID, fmt.Sprintf(i18n.Get("%s, you have been warned (%d/%d)", ev.Language), target.Name, count, e.policy.WarnThreshold))
	return &ActionTaken{Kind: ActionWarn, WarnCount: count}, nil
}

// Mute handles an explicit /mute on a target.
func (e *Enforcer) Mute(ctx context.Context, ev CommandEvent, target TargetRef, duration time.Duration) (*ActionTaken, error) {
	if refused := e.refuseOnPrivileged(ctx, ev, target); refused != nil {
		return refused, nil
	}
	if err := e.port.Restrict(ctx, ev.ChatID, target.UserID, false, time.Now().Add(duration)); err != nil {
		observability.RecordEnforcement(string(ActionMute), "error")
		return nil, fmt.Errorf("restrict user: %w", err)
	}
	observability.RecordEnforcement(string(ActionMute), "ok")
	e.sendTransient(ctx, ev.ChatID, i18n.Get("User muted", ev.Language))
	return &ActionTaken{Kind: ActionMute}, nil
}

// Unmute handles an explicit /unmute on a target.
func (e *Enforcer) Unmute(ctx context.Context, ev CommandEvent, target TargetRef) (*ActionTaken, error) {
	if err := e.port.Restrict(ctx, ev.ChatID, target.UserID, true, time.Time{}); err != nil {
		observability.RecordEnforcement(string(ActionUnmute), "error")
		return nil, fmt.Errorf("unrestrict user: %w", err)
	}
	observability.RecordEnforcement(string(ActionUnmute), "ok")
	e.sendTransient(ctx, ev.ChatID, i18n.Get("User unmuted", ev.Language))
	return &ActionTaken{Kind: ActionUnmute}, nil
}

// Ban handles an explicit /ban on a target. A ban also resets the warning
// counter, the ledger entry is meaningless for a banned user.
func (e *Enforcer) Ban(ctx context.Context, ev CommandEvent, target TargetRef) (*ActionTaken, error) {
	if refused := e.refuseOnPrivileged(ctx, ev, target); refused != nil {
		return refused, nil
	}
	if err := e.port.Ban(ctx, ev.ChatID, target.UserID, time.Time{}); err != nil {
		observability.RecordEnforcement(string(ActionBan), "error")
		return nil, fmt.Errorf("ban user: %w", err)
	}
	observability.RecordEnforcement(string(ActionBan), "ok")
	if err := e.ledger.Reset(ctx, ev.ChatID, target.UserID); err != nil {
		return nil, fmt.Errorf("reset warnings after ban: %w", err)
	}
	e.sendTransient(ctx, ev.ChatID, i18n.Get("User banned", ev.Language))
	return &ActionTaken{Kind: ActionBan}, nil
}

// Unban handles an explicit /unban on a target.
func (e *Enforcer) Unban(ctx context.Context, ev CommandEvent, target TargetRef) (*ActionTaken, error) {
	if err := e.port.Unban(ctx, ev.ChatID, target.UserID); err != nil {
		observability.RecordEnforcement(string(ActionUnban), "error")
		return nil, fmt.Errorf("unban user: %w", err)
	}
	observability.RecordEnforcement(string(ActionUnban), "ok")
	e.sendTransient(ctx, ev.ChatID, i18n.Get("User unbanned", ev.Language))
	return &ActionTaken{Kind: ActionUnban}, nil
}

// refuseOnPrivileged guards restrictive actions against privileged targets.
func (e *Enforcer) refuseOnPrivileged(ctx context.Context, ev CommandEvent, target TargetRef) *ActionTaken {
	if !e.privileges.IsPrivileged(ctx, ev.ChatID, target.UserID) {
		return nil
	}
	log.WithError(errors.ErrCannotActOnAdmin).WithFields(log.Fields{
		"chat_id": ev.ChatID,
		"actor":   ev.ActorID,
		"target":  target.UserID,
		"command": ev.Command,
	}).Info("refusing restrictive action")
	e.sendTransient(ctx, ev.ChatID, i18n.Get("I cannot act on an admin", ev.Language))
	return &ActionTaken{Kind: ActionRefused}
}

// kick is a temporary ban followed by an immediate unban so the user can
// rejoin, or a permanent ban when configured.
func (e *Enforcer) kick(ctx context.Context, chatID, userID int64) {
	if e.policy.KickOnThreshold == config.KickModePermanent {
		e.bestEffort(ctx, ActionBan, "ban user", func() error {
			return e.port.Ban(ctx, chatID, userID, time.Time{})
		})
		return
	}
	e.bestEffort(ctx, ActionKick, "kick-ban user", func() error {
		return e.port.Ban(ctx, chatID, userID, time.Now().Add(kickBanDuration))
	})
	e.bestEffort(ctx, ActionKick, "kick-unban user", func() error {
		return e.port.Unban(ctx, chatID, userID)
	})
}

func (e *Enforcer) bestEffort(ctx context.Context, action ActionKind, operation string, f func() error) {
	if err := f(); err != nil {
		observability.RecordEnforcement(string(action), "error")
		log.WithFields(log.Fields{
			"action":    string(action),
			"operation": operation,
			"error":     err.Error(),
		}).Error("enforcement step failed")
		return
	}
	observability.RecordEnforcement(string(action), "ok")
}

func (e *Enforcer) sendTransient(ctx context.Context, chatID int64, text string) {
	messageID, err := e.port.SendMessage(ctx, chatID, text)
	if err != nil {
		log.WithFields(log.Fields{
			"chat_id": chatID,
			"error":   err.Error(),
		}).Debug("cant send transient notice")
		return
	}
	if e.notices != nil {
		e.notices.ScheduleDelete(chatID, messageID, e.policy.NoticeTTL)
	}
}
