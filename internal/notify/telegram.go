package notify

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
)

// MessageSender is the part of *bot.Bot the notifier uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier mirrors admin-queue messages into a chat. Messages for
// other recipients are not its concern and count as delivered.
type TelegramNotifier struct {
	client   MessageSender
	chatID   int64
	renderer *Renderer
	logger   *zap.Logger
}

func NewTelegramNotifier(client MessageSender, chatID int64, renderer *Renderer, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{client: client, chatID: chatID, renderer: renderer, logger: logger}
}

// NewTelegramClient connects a bot with the given token.
func NewTelegramClient(token string) (*bot.Bot, error) {
	return bot.New(token)
}

func (n *TelegramNotifier) Notify(ctx context.Context, kind appointment.NotificationKind, v *appointment.View, to appointment.Recipient, extra map[string]string) bool {
	if to.Role != appointment.RoleAdmin {
		return true
	}

	msg, err := n.renderer.Render(string(kind), n.renderer.Data(v, to.Name, extra))
	if err != nil {
		n.logger.Error("render telegram message", zap.String("kind", string(kind)), zap.Error(err))
		return false
	}

	_, err = n.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   msg.Subject + "\n\n" + msg.Body,
	})
	if err != nil {
		n.logger.Warn("send telegram message",
			zap.String("appointment_id", v.ID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return false
	}
	return true
}
