package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/guardbot/internal/errors"
	"github.com/iamwavecut/guardbot/internal/moderation"
)

const msgNoPrivileges = "not enough rights"

// Operations implements the enforcement ActionPort over the Telegram bot API.
// Request deadlines come from the bot client's HTTP timeout, no call may
// block the pipeline indefinitely.
type Operations struct {
	bot *api.BotAPI
}

func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return withPrivilegeError(err, "delete message")
	}
	return nil
}

func (o *Operations) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	sent, err := o.bot.Send(api.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

func (o *Operations) Restrict(ctx context.Context, chatID, userID int64, canSend bool, until time.Time) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		Permissions: &api.ChatPermissions{
			CanSendMessages:       canSend,
			CanSendOtherMessages:  canSend,
			CanAddWebPagePreviews: canSend,
		},
		UntilDate: untilUnix(until),

		UseIndependentChatPermissions: !canSend,
	}
	if _, err := o.bot.Request(config); err != nil {
		return withPrivilegeError(err, "restrict")
	}
	return nil
}

func (o *Operations) Ban(ctx context.Context, chatID, userID int64, until time.Time) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		UntilDate:      untilUnix(until),
		RevokeMessages: true,
	}
	if _, err := o.bot.Request(config); err != nil {
		return withPrivilegeError(err, "ban")
	}
	return nil
}

func (o *Operations) Unban(ctx context.Context, chatID, userID int64) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	}
	if _, err := o.bot.Request(config); err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	return nil
}

func (o *Operations) GetMembership(ctx context.Context, chatID, userID int64) (*moderation.Membership, error) {
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat member: %w", err)
	}
	return &moderation.Membership{
		IsAdmin: member.IsAdministrator(),
		IsOwner: member.IsCreator(),
	}, nil
}

func untilUnix(until time.Time) int64 {
	if until.IsZero() {
		return 0
	}
	return until.Unix()
}

func withPrivilegeError(err error, operation string) error {
	if strings.Contains(err.Error(), msgNoPrivileges) {
		return errors.ErrNoPrivileges
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}
