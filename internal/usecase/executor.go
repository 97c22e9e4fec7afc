package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
)

// lifecycleTx is used for every mutation that touches a user's subscription
// or payments. The per-user lock taken first makes READ COMMITTED enough.
var lifecycleTx = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// userExecutor runs a function inside one transaction while holding the
// per-user lifecycle lock and the user row.
type userExecutor struct {
	tm     repository.TransactionManager
	locker repository.UserLocker
	users  repository.UserRepository
}

func (e userExecutor) withUser(ctx context.Context, userID string, fn func(ctx context.Context, tx repository.Tx, u *model.User) error) error {
	return e.tm.WithTx(ctx, lifecycleTx, func(ctx context.Context, tx repository.Tx) error {
		if err := e.locker.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		u, err := e.users.FindByID(ctx, tx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		return fn(ctx, tx, u)
	})
}

func newRequestID() string { return ulid.Make().String() }

// notFound rewrites a bare domain.ErrNotFound into a message naming the entity.
func notFound(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", domain.ErrNotFound, what)
	}
	return err
}

func requireAdmin(c model.Caller) error {
	if !c.IsAdmin() {
		return fmt.Errorf("%w: admin access required", domain.ErrAccessDenied)
	}
	return nil
}

func requireOwnerOrAdmin(c model.Caller, ownerID string) error {
	if !c.CanAccess(ownerID) {
		return fmt.Errorf("%w: not allowed to access this resource", domain.ErrAccessDenied)
	}
	return nil
}

// notify hands n to the notifier after the surrounding transaction has
// committed. Failures never affect the caller.
func notify(ctx context.Context, n adapter.Notifier, log *zerolog.Logger, msg adapter.AdminNotification) {
	if n == nil {
		return
	}
	if err := n.NotifyAdmins(ctx, msg); err != nil {
		logging.With(ctx, log).Warn().Err(err).Str("kind", string(msg.Kind)).Msg("admin notification failed")
	}
}

// resultLabel buckets an error for the transition metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}
