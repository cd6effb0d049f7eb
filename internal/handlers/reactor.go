package handlers

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/moderation"
	"github.com/iamwavecut/guardbot/internal/observability"
)

// Reactor feeds every group message through the moderation pipeline.
type Reactor struct {
	s        bot.Service
	enforcer *moderation.Enforcer
}

func NewReactor(s bot.Service, enforcer *moderation.Enforcer) *Reactor {
	return &Reactor{
		s:        s,
		enforcer: enforcer,
	}
}

func (r *Reactor) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !isGroupChat(chat) {
		return true, nil
	}
	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil {
		return true, nil
	}
	if msg.IsCommand() {
		return true, nil
	}
	// status updates and plain media feed nothing, but forwarded media
	// must still pass the forward policy
	if msg.Text == "" && msg.Caption == "" && msg.ForwardOrigin == nil {
		return true, nil
	}

	settings, err := getOrCreateSettings(ctx, r.s, chat)
	if err != nil {
		return true, err
	}
	if !settings.Enabled {
		return true, nil
	}

	done := observability.StartMessageProcessing()

	entities := convertEntities(msg.Entities)
	entities = append(entities, convertEntities(msg.CaptionEntities)...)

	event := moderation.MessageEvent{
		ChatID:      chat.ID,
		UserID:      user.ID,
		MessageID:   msg.MessageID,
		UserName:    bot.GetUN(user),
		Text:        msg.Text,
		Caption:     msg.Caption,
		Entities:    entities,
		IsForwarded: msg.ForwardOrigin != nil,
		Timestamp:   time.Unix(int64(msg.Date), 0),
		Language:    r.s.GetLanguage(ctx, chat.ID, user),
	}

	action, err := r.enforcer.HandleMessage(ctx, event)
	if err != nil {
		done("error")
		r.getLogEntry().WithFields(log.Fields{
			"chat_id": chat.ID,
			"user_id": user.ID,
			"error":   err.Error(),
		}).Error("message could not be fully moderated")
		return true, err
	}
	done("ok")

	if action.Kind != moderation.ActionNone {
		r.getLogEntry().WithFields(log.Fields{
			"chat_id":   chat.ID,
			"user_id":   user.ID,
			"action":    string(action.Kind),
			"violation": string(action.Violation),
			"warns":     action.WarnCount,
		}).Info("enforcement action taken")
		return false, nil
	}
	return true, nil
}

func (r *Reactor) getLogEntry() *log.Entry {
	return log.WithField("context", "reactor")
}
