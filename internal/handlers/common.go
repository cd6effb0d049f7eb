package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/moderation"
)

func getOrCreateSettings(ctx context.Context, s bot.Service, chat *api.Chat) (*db.Settings, error) {
	settings, err := s.GetSettings(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = db.DefaultSettings(chat.ID)
		if err := s.SetSettings(ctx, settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func convertEntities(entities []api.MessageEntity) []moderation.Entity {
	if len(entities) == 0 {
		return nil
	}
	converted := make([]moderation.Entity, 0, len(entities))
	for _, entity := range entities {
		e := moderation.Entity{
			Type: entity.Type,
			URL:  entity.URL,
		}
		if entity.User != nil {
			e.UserID = entity.User.ID
		}
		converted = append(converted, e)
	}
	return converted
}

func isGroupChat(chat *api.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
