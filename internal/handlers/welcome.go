package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/moderation"
)

// Welcome greets newly joined members with the chat's configured template.
type Welcome struct {
	s       bot.Service
	notices moderation.NoticeScheduler
}

func NewWelcome(s bot.Service, notices moderation.NoticeScheduler) *Welcome {
	return &Welcome{
		s:       s,
		notices: notices,
	}
}

func (w *Welcome) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if u.Message == nil || chat == nil || len(u.Message.NewChatMembers) == 0 {
		return true, nil
	}
	if !isGroupChat(chat) {
		return true, nil
	}

	settings, err := getOrCreateSettings(ctx, w.s, chat)
	if err != nil {
		return false, err
	}

	for _, member := range u.Message.NewChatMembers {
		if member.IsBot {
			continue
		}
		greeting := RenderWelcome(settings.WelcomeTemplate(), bot.GetUN(&member))
		sent, err := w.s.GetBot().Send(api.NewMessage(chat.ID, greeting))
		if err != nil {
			w.getLogEntry().WithFields(log.Fields{
				"chat_id": chat.ID,
				"user_id": member.ID,
				"error":   err.Error(),
			}).Warn("cant send welcome message")
			continue
		}
		w.notices.ScheduleDelete(chat.ID, sent.MessageID, config.Get().Moderation.NoticeTTL)
	}
	return false, nil
}

// RenderWelcome substitutes the {user_name} placeholder in a template.
func RenderWelcome(template, userName string) string {
	return strings.ReplaceAll(template, "{user_name}", userName)
}

func (w *Welcome) getLogEntry() *log.Entry {
	return log.WithField("context", "welcome")
}
