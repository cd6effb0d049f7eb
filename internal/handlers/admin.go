package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/errors"
	"github.com/iamwavecut/guardbot/internal/i18n"
	"github.com/iamwavecut/guardbot/internal/moderation"
)

// Admin routes moderation commands issued by chat administrators.
type Admin struct {
	s          bot.Service
	enforcer   *moderation.Enforcer
	privileges moderation.PrivilegeChecker
	notices    moderation.NoticeScheduler
}

func NewAdmin(s bot.Service, enforcer *moderation.Enforcer, privileges moderation.PrivilegeChecker, notices moderation.NoticeScheduler) *Admin {
	return &Admin{
		s:          s,
		enforcer:   enforcer,
		privileges: privileges,
		notices:    notices,
	}
}

var adminCommands = map[string]struct{}{
	"warn":       {},
	"mute":       {},
	"unmute":     {},
	"ban":        {},
	"unban":      {},
	"setwelcome": {},
	"status":     {},
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if u.Message == nil || chat == nil || user == nil || !u.Message.IsCommand() {
		return true, nil
	}
	if !isGroupChat(chat) {
		return true, nil
	}
	msg := u.Message
	command := msg.Command()
	if _, known := adminCommands[command]; !known {
		return true, nil
	}

	language := a.s.GetLanguage(ctx, chat.ID, user)
	entry := a.getLogEntry().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": user.ID,
		"command": command,
	})

	if !a.privileges.IsPrivileged(ctx, chat.ID, user.ID) {
		a.reply(chat.ID, i18n.Get("You must be an admin to use this", language))
		return false, nil
	}

	event := moderation.CommandEvent{
		ChatID:    chat.ID,
		ActorID:   user.ID,
		MessageID: msg.MessageID,
		Command:   command,
		Args:      strings.Fields(msg.CommandArguments()),
		Entities:  convertEntities(msg.Entities),
		Language:  language,
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		event.ReplyToUserID = msg.ReplyToMessage.From.ID
		event.ReplyToUserName = bot.GetUN(msg.ReplyToMessage.From)
	}

	// the command message itself is clutter, clean it up with the notices
	a.notices.ScheduleDelete(chat.ID, msg.MessageID, config.Get().Moderation.NoticeTTL)

	switch command {
	case "status":
		a.reply(chat.ID, i18n.Get("Bot is active and monitoring this group", language))
		return false, nil
	case "setwelcome":
		return false, a.setWelcome(ctx, chat, msg.CommandArguments(), language)
	}

	target, err := moderation.ResolveTarget(event)
	if err != nil {
		if errors.ErrUnresolvableTarget == err {
			a.reply(chat.ID, i18n.Get("Cannot resolve target user, reply to a message or pass a user ID", language))
			return false, nil
		}
		return false, err
	}

	var actionErr error
	switch command {
	case "warn":
		_, actionErr = a.enforcer.Warn(ctx, event, *target)
	case "mute":
		duration := moderation.ParseRestrictDuration(event.Args)
		_, actionErr = a.enforcer.Mute(ctx, event, *target, duration)
	case "unmute":
		_, actionErr = a.enforcer.Unmute(ctx, event, *target)
	case "ban":
		_, actionErr = a.enforcer.Ban(ctx, event, *target)
	case "unban":
		_, actionErr = a.enforcer.Unban(ctx, event, *target)
	}
	if actionErr != nil {
		entry.WithFields(log.Fields{
			"target": target.UserID,
			"error":  actionErr.Error(),
		}).Error("admin command failed")
		return false, actionErr
	}
	return false, nil
}

func (a *Admin) setWelcome(ctx context.Context, chat *api.Chat, template string, language string) error {
	settings, err := getOrCreateSettings(ctx, a.s, chat)
	if err != nil {
		return err
	}
	settings.WelcomeMessage = strings.TrimSpace(template)
	if err := a.s.SetSettings(ctx, settings); err != nil {
		return err
	}
	a.reply(chat.ID, i18n.Get("Welcome message updated", language))
	return nil
}

func (a *Admin) reply(chatID int64, text string) {
	sent, err := a.s.GetBot().Send(api.NewMessage(chatID, text))
	if err != nil {
		a.getLogEntry().WithField("error", err.Error()).Debug("cant send reply")
		return
	}
	a.notices.ScheduleDelete(chatID, sent.MessageID, config.Get().Moderation.NoticeTTL)
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}
