package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
	"gym-membership/internal/infra/worker"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

const sendTimeout = 15 * time.Second

// AsyncNotifier queues notifications on the worker pool so request
// handlers never wait on Telegram.
type AsyncNotifier struct {
	inner adapter.Notifier
	pool  *worker.Pool
	log   *zerolog.Logger
}

func NewAsyncNotifier(inner adapter.Notifier, pool *worker.Pool, logger *zerolog.Logger) *AsyncNotifier {
	return &AsyncNotifier{inner: inner, pool: pool, log: logging.Component(logger, "AsyncNotifier")}
}

// NotifyAdmins returns once the message is queued. The request context is
// not carried into the task, only its trace fields.
func (a *AsyncNotifier) NotifyAdmins(ctx context.Context, n adapter.AdminNotification) error {
	log := logging.With(ctx, a.log)
	err := a.pool.Submit(func(workerCtx context.Context) error {
		sendCtx, cancel := context.WithTimeout(workerCtx, sendTimeout)
		defer cancel()
		if err := a.inner.NotifyAdmins(sendCtx, n); err != nil {
			log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("admin notification failed")
			return err
		}
		return nil
	})
	if err != nil {
		metrics.IncNotification("dropped")
		return err
	}
	return nil
}
