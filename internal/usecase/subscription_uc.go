// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase drives the subscription embedded on a user through
// request, approval, rejection, termination and reactivation.
type SubscriptionUseCase interface {
	Request(ctx context.Context, caller model.Caller, userID, planID string, start, end *time.Time) (*model.Subscription, error)
	Approve(ctx context.Context, caller model.Caller, userID string) (*model.Subscription, error)
	Reject(ctx context.Context, caller model.Caller, userID, reason string) (*model.Subscription, error)
	Terminate(ctx context.Context, caller model.Caller, userID, reason string) (*model.Subscription, error)
	Unterminate(ctx context.Context, caller model.Caller, userID string) (*model.Subscription, error)

	History(ctx context.Context, caller model.Caller, userID string) ([]*model.SubscriptionEvent, error)
	Membership(ctx context.Context, caller model.Caller, userID string) (*Membership, error)
}

// Membership is the read model every guard and dashboard should use.
type Membership struct {
	UserID       string              `json:"userId"`
	MembershipID *string             `json:"membershipId,omitempty"`
	Subscription *model.Subscription `json:"subscription"`
	Plan         *model.Plan         `json:"plan,omitempty"`
	Valid        bool                `json:"valid"`
	Expired      bool                `json:"expired"`
}

type subscriptionUC struct {
	userExecutor
	plans    repository.PlanRepository
	payments repository.PaymentRepository
	events   repository.SubscriptionEventRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	users repository.UserRepository,
	plans repository.PlanRepository,
	payments repository.PaymentRepository,
	events repository.SubscriptionEventRepository,
	tm repository.TransactionManager,
	locker repository.UserLocker,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		userExecutor: userExecutor{tm: tm, locker: locker, users: users},
		plans:        plans,
		payments:     payments,
		events:       events,
		notifier:     notifier,
		log:          logging.Component(logger, "SubscriptionUC"),
	}
}

func (u *subscriptionUC) Request(ctx context.Context, caller model.Caller, userID, planID string, start, end *time.Time) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Request")()
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	if planID == "" {
		return nil, fmt.Errorf("%w: planId is required", domain.ErrValidation)
	}

	var (
		out      *model.Subscription
		userName string
		plan     *model.Plan
	)
	err := u.withUser(ctx, userID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		var err error
		plan, err = u.plans.FindByID(ctx, tx, planID)
		if err != nil {
			return notFound(err, "plan")
		}
		if !plan.IsActive {
			return fmt.Errorf("%w: plan is no longer offered", domain.ErrValidation)
		}

		now := time.Now()
		prev := user.Subscription
		if !caller.IsAdmin() && prev != nil && (prev.Status == model.SubscriptionStatusPending || prev.IsValidAt(now)) {
			return fmt.Errorf("%w: you already have an active or pending subscription", domain.ErrConflict)
		}

		var s, e time.Time
		if start != nil {
			s = *start
		}
		if end != nil {
			e = *end
		}
		next, err := model.NewPendingSubscription(newRequestID(), plan, s, e, now)
		if err != nil {
			return err
		}
		if err := u.users.SaveSubscription(ctx, tx, userID, next); err != nil {
			return err
		}
		ev := model.NewSubscriptionEvent(newRequestID(), userID, caller.ID, model.ActionRequest, prev, next, "", now)
		if err := u.events.Append(ctx, tx, ev); err != nil {
			return err
		}
		out, userName = next, user.Name
		return nil
	})
	if err != nil {
		metrics.IncSubscriptionTransition(model.ActionRequest, resultLabel(err))
		return nil, err
	}

	metrics.IncSubscriptionTransition(model.ActionRequest, "ok")
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).Str("plan_id", planID).Str("request_id", out.RequestID).
		Time("end_date", out.EndDate).Msg("subscription requested")
	notify(ctx, u.notifier, u.log, adapter.AdminNotification{
		Kind:     adapter.NotifySubscriptionRequested,
		UserID:   userID,
		UserName: userName,
		PlanName: plan.Name,
		Amount:   basePrice(plan),
	})
	return out, nil
}

// transition runs one admin action against the user's current subscription
// under the lifecycle lock, persists it and appends a history event.
func (u *subscriptionUC) transition(
	ctx context.Context,
	caller model.Caller,
	userID string,
	action model.SubscriptionAction,
	reason string,
	apply func(ctx context.Context, tx repository.Tx, s *model.Subscription, now time.Time) error,
) (*model.Subscription, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var (
		out  *model.Subscription
		from model.SubscriptionStatus
	)
	err := u.withUser(ctx, userID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		s, f, err := u.transitionTx(ctx, tx, caller, user, action, reason, apply)
		out, from = s, f
		return err
	})
	if err != nil {
		metrics.IncSubscriptionTransition(action, resultLabel(err))
		logging.With(ctx, u.log).Warn().Err(err).Str("user_id", userID).Str("action", string(action)).Msg("subscription transition refused")
		return nil, err
	}
	metrics.IncSubscriptionTransition(action, "ok")
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).Str("action", string(action)).
		Str("from", string(from)).Str("to", string(out.Status)).
		Msg("subscription transition")
	return out, nil
}

// transitionTx is the transactional body of transition. The user row must
// already be locked by the caller.
func (u *subscriptionUC) transitionTx(
	ctx context.Context,
	tx repository.Tx,
	caller model.Caller,
	user *model.User,
	action model.SubscriptionAction,
	reason string,
	apply func(ctx context.Context, tx repository.Tx, s *model.Subscription, now time.Time) error,
) (*model.Subscription, model.SubscriptionStatus, error) {
	if user.Subscription == nil {
		return nil, "", fmt.Errorf("%w: user has no subscription", domain.ErrInvalidState)
	}
	now := time.Now()
	prev := *user.Subscription
	next := *user.Subscription
	if err := apply(ctx, tx, &next, now); err != nil {
		return nil, "", err
	}
	if err := u.users.SaveSubscription(ctx, tx, user.ID, &next); err != nil {
		return nil, "", err
	}
	ev := model.NewSubscriptionEvent(newRequestID(), user.ID, caller.ID, action, &prev, &next, reason, now)
	if err := u.events.Append(ctx, tx, ev); err != nil {
		return nil, "", err
	}
	user.Subscription = &next
	return &next, prev.Status, nil
}

// approveTx approves and then reconciles payments so a drifted failed
// payment for the same plan is visible as pending again.
func (u *subscriptionUC) approveTx(ctx context.Context, tx repository.Tx, s *model.Subscription, userID string) error {
	if err := s.Approve(); err != nil {
		return err
	}
	moved, err := u.payments.ReconcilePending(ctx, tx, userID, s.PlanID)
	if err != nil {
		return err
	}
	if moved > 0 {
		logging.With(ctx, u.log).Info().Str("user_id", userID).Int64("payments", moved).Msg("failed payment moved back to pending")
	}
	return nil
}

func (u *subscriptionUC) Approve(ctx context.Context, caller model.Caller, userID string) (*model.Subscription, error) {
	return u.transition(ctx, caller, userID, model.ActionApprove, "",
		func(ctx context.Context, tx repository.Tx, s *model.Subscription, _ time.Time) error {
			return u.approveTx(ctx, tx, s, userID)
		})
}

func (u *subscriptionUC) Reject(ctx context.Context, caller model.Caller, userID, reason string) (*model.Subscription, error) {
	return u.transition(ctx, caller, userID, model.ActionReject, reason,
		func(_ context.Context, _ repository.Tx, s *model.Subscription, _ time.Time) error {
			return s.Reject(reason)
		})
}

func (u *subscriptionUC) Terminate(ctx context.Context, caller model.Caller, userID, reason string) (*model.Subscription, error) {
	if reason == "" {
		reason = model.DefaultTerminationReason
	}
	return u.transition(ctx, caller, userID, model.ActionTerminate, reason,
		func(_ context.Context, _ repository.Tx, s *model.Subscription, now time.Time) error {
			return s.Terminate(reason, now)
		})
}

func (u *subscriptionUC) Unterminate(ctx context.Context, caller model.Caller, userID string) (*model.Subscription, error) {
	return u.transition(ctx, caller, userID, model.ActionUnterminate, "",
		func(_ context.Context, _ repository.Tx, s *model.Subscription, now time.Time) error {
			return s.Unterminate(now)
		})
}

func (u *subscriptionUC) History(ctx context.Context, caller model.Caller, userID string) ([]*model.SubscriptionEvent, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, notFound(err, "user")
	}
	return u.events.ListByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) Membership(ctx context.Context, caller model.Caller, userID string) (*Membership, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	now := time.Now()
	m := &Membership{
		UserID:       user.ID,
		MembershipID: user.MembershipID,
		Subscription: user.Subscription,
		Valid:        user.Subscription.IsValidAt(now),
		Expired:      user.Subscription.Expired(now),
	}
	if s := user.Subscription; s != nil {
		if plan, err := u.plans.FindByID(ctx, repository.NoTX, s.PlanID); err == nil {
			m.Plan = plan
		}
	}
	return m, nil
}
