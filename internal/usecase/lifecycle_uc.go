package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ LifecycleUseCase = (*lifecycleUC)(nil)

// LifecycleUseCase holds the compound admin actions that touch both the
// subscription and a payment.
type LifecycleUseCase interface {
	// ApproveAndCompletePayment approves the user's pending subscription and
	// completes paymentID in one transaction: either both happen or neither.
	ApproveAndCompletePayment(ctx context.Context, caller model.Caller, paymentID, userID string, transactionID *string) (*ApprovalResult, error)
}

type ApprovalResult struct {
	Subscription *model.Subscription `json:"subscription"`
	Payment      *model.Payment      `json:"payment"`
	// Approved is false when the subscription was already live and only
	// the payment was completed.
	Approved bool `json:"approved"`
}

type lifecycleUC struct {
	subs     *subscriptionUC
	payments *paymentUC
	log      *zerolog.Logger
}

func NewLifecycleUseCase(subs *subscriptionUC, payments *paymentUC, logger *zerolog.Logger) *lifecycleUC {
	return &lifecycleUC{subs: subs, payments: payments, log: logging.Component(logger, "LifecycleUC")}
}

func (u *lifecycleUC) ApproveAndCompletePayment(ctx context.Context, caller model.Caller, paymentID, userID string, transactionID *string) (*ApprovalResult, error) {
	defer logging.TraceDuration(u.log, "LifecycleUC.ApproveAndCompletePayment")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	var (
		res    ApprovalResult
		status statusResult
	)
	err := u.subs.withUser(ctx, userID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		s := user.Subscription
		if s == nil {
			return fmt.Errorf("%w: user has no subscription", domain.ErrInvalidState)
		}
		switch s.Status {
		case model.SubscriptionStatusPending:
			next, _, err := u.subs.transitionTx(ctx, tx, caller, user, model.ActionApprove, "",
				func(ctx context.Context, tx repository.Tx, s *model.Subscription, _ time.Time) error {
					return u.subs.approveTx(ctx, tx, s, userID)
				})
			if err != nil {
				return err
			}
			res.Subscription, res.Approved = next, true
		case model.SubscriptionStatusApproved, model.SubscriptionStatusActive:
			// already approved; retrying the compound action only completes the payment
			res.Subscription = s
		default:
			return fmt.Errorf("%w: cannot approve a %s subscription", domain.ErrInvalidState, s.Status)
		}

		r, err := u.payments.setStatusTx(ctx, tx, caller, user, paymentID, model.PaymentStatusCompleted, transactionID, time.Now())
		if err != nil {
			return err
		}
		status = r
		res.Payment = r.payment
		if user.Subscription != nil {
			res.Subscription = user.Subscription
		}
		return nil
	})
	if err != nil {
		metrics.IncSubscriptionTransition(model.ActionApprove, resultLabel(err))
		logging.With(ctx, u.log).Warn().Err(err).Str("user_id", userID).Str("payment_id", paymentID).Msg("approve and complete rolled back")
		return nil, err
	}

	if res.Approved {
		metrics.IncSubscriptionTransition(model.ActionApprove, "ok")
	}
	u.payments.afterStatus(ctx, status)
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).Str("payment_id", paymentID).
		Bool("approved", res.Approved).Str("status", string(res.Subscription.Status)).
		Msg("subscription approved and payment completed")
	return &res, nil
}
