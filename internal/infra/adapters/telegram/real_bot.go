package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gym-membership/internal/config"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/infra/i18n"
	"gym-membership/internal/infra/metrics"
)

var _ adapter.Notifier = (*BotNotifier)(nil)

// sender is the subset of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotNotifier posts admin notifications to the configured Telegram chats.
type BotNotifier struct {
	bot   sender
	chats []int64
	tr    *i18n.Translator
	log   *zerolog.Logger
}

func NewBotNotifier(cfg *config.TelegramConfig, tr *i18n.Translator, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil {
		return nil, errors.New("telegram config is nil")
	}
	if tr == nil {
		return nil, errors.New("translator is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newBotNotifier(bot, cfg.AdminChatIDs, tr, logger), nil
}

func newBotNotifier(bot sender, chats []int64, tr *i18n.Translator, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "BotNotifier").Logger()
	return &BotNotifier{bot: bot, chats: chats, tr: tr, log: &l}
}

// Render builds the message text for n.
func (b *BotNotifier) Render(n adapter.AdminNotification) string {
	switch n.Kind {
	case adapter.NotifySubscriptionRequested:
		return b.tr.T(string(n.Kind), n.UserName, n.UserID, n.PlanName)
	case adapter.NotifyTransactionSubmitted:
		return b.tr.T(string(n.Kind), n.UserName, n.UserID, n.PlanName, b.tr.Money(n.Amount), n.TransactionID, n.PaymentID)
	case adapter.NotifyPaymentCompleted:
		return b.tr.T(string(n.Kind), n.UserName, n.UserID, n.PlanName, b.tr.Money(n.Amount), n.PaymentID)
	default:
		return b.tr.T(string(n.Kind))
	}
}

// NotifyAdmins sends to every admin chat and reports the first failure.
func (b *BotNotifier) NotifyAdmins(ctx context.Context, n adapter.AdminNotification) error {
	text := b.Render(n)
	var firstErr error
	for _, chatID := range b.chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := b.bot.Send(msg); err != nil {
			metrics.IncNotification("error")
			b.log.Warn().Err(err).Int64("chat_id", chatID).Str("kind", string(n.Kind)).Msg("telegram send failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.IncNotification("sent")
	}
	return firstErr
}
