package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of sending them. Used when
// telegram is disabled.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) NotifyAdmins(ctx context.Context, msg adapter.AdminNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Debug().
		Str("kind", string(msg.Kind)).
		Str("user_id", msg.UserID).
		Str("payment_id", msg.PaymentID).
		Msg("admin notification (noop)")
	return nil
}
