// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase is the payment ledger: one pending payment per (user, plan)
// cycle, manual transaction references and admin verification.
type PaymentUseCase interface {
	// CreateOrReusePending returns the existing pending payment for
	// (userID, planID) unchanged, or records a new one. reused reports which.
	CreateOrReusePending(ctx context.Context, caller model.Caller, userID, planID, couponCode string) (p *model.Payment, reused bool, err error)
	// Quote computes a checkout draft in memory; nothing is persisted or redeemed.
	Quote(ctx context.Context, caller model.Caller, userID, planID, couponCode string) (*model.PaymentDraft, error)
	// ReplacePendingCoupon swaps a pending payment for one priced with code.
	ReplacePendingCoupon(ctx context.Context, caller model.Caller, paymentID, couponCode string) (*model.Payment, error)
	RecordTransactionReference(ctx context.Context, caller model.Caller, paymentID, transactionID string) (*model.Payment, error)
	SetStatus(ctx context.Context, caller model.Caller, paymentID string, status model.PaymentStatus, transactionID *string) (*model.Payment, error)

	Get(ctx context.Context, caller model.Caller, id string) (*model.Payment, error)
	ListByUser(ctx context.Context, caller model.Caller, userID string) ([]*model.Payment, error)
	ListAll(ctx context.Context, caller model.Caller) ([]*model.Payment, error)
	Delete(ctx context.Context, caller model.Caller, id string) error
}

// PaymentPolicy carries the billing settings the ledger needs.
type PaymentPolicy struct {
	Currency             string
	TransactionRateLimit int64
	RateWindow           time.Duration
}

type paymentUC struct {
	userExecutor
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	coupons  repository.CouponRepository
	events   repository.SubscriptionEventRepository
	limiter  adapter.RateLimiter
	notifier adapter.Notifier
	policy   PaymentPolicy
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	coupons repository.CouponRepository,
	users repository.UserRepository,
	events repository.SubscriptionEventRepository,
	tm repository.TransactionManager,
	locker repository.UserLocker,
	limiter adapter.RateLimiter,
	notifier adapter.Notifier,
	policy PaymentPolicy,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		userExecutor: userExecutor{tm: tm, locker: locker, users: users},
		payments:     payments,
		plans:        plans,
		coupons:      coupons,
		events:       events,
		limiter:      limiter,
		notifier:     notifier,
		policy:       policy,
		log:          logging.Component(logger, "PaymentUC"),
	}
}

// basePrice is what a plan costs before coupons.
func basePrice(p *model.Plan) int64 {
	if p.HasDiscount && p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.Price
}

func (u *paymentUC) purchasablePlan(ctx context.Context, tx repository.Tx, planID string) (*model.Plan, error) {
	plan, err := u.plans.FindByID(ctx, tx, planID)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan is no longer offered", domain.ErrValidation)
	}
	return plan, nil
}

// requestIDFor links a payment to the subscription request it funds.
func requestIDFor(user *model.User, planID string) *string {
	s := user.Subscription
	if s == nil || s.PlanID != planID || s.RequestID == "" {
		return nil
	}
	id := s.RequestID
	return &id
}

func (u *paymentUC) CreateOrReusePending(ctx context.Context, caller model.Caller, userID, planID, couponCode string) (*model.Payment, bool, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateOrReusePending")()
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, false, err
	}
	if planID == "" {
		return nil, false, fmt.Errorf("%w: planId is required", domain.ErrValidation)
	}

	var (
		out    *model.Payment
		reused bool
	)
	err := u.withUser(ctx, userID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		existing, err := u.payments.FindPendingByUserPlan(ctx, tx, userID, planID)
		if err == nil {
			out, reused = existing, true
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		plan, err := u.purchasablePlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		now := time.Now()
		q, err := redeemCoupon(ctx, u.coupons, tx, couponCode, basePrice(plan), now)
		if err != nil {
			return err
		}
		draft := model.NewPaymentDraft(userID, planID, q.BaseAmount)
		draft.Quote = q
		draft.SubscriptionRequestID = requestIDFor(user, planID)

		p := draft.NewPayment(uuid.NewString(), now)
		if err := u.payments.Insert(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		// lost an insert race to another writer; its payment is the answer
		existing, ferr := u.payments.FindPendingByUserPlan(ctx, repository.NoTX, userID, planID)
		if ferr == nil {
			out, reused, err = existing, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}

	log := logging.With(ctx, u.log).Info().Str("payment_id", out.ID).Str("user_id", userID).Str("plan_id", planID)
	if reused {
		metrics.IncPayment("reused")
		log.Msg("pending payment reused")
	} else {
		metrics.IncPayment("created")
		log.Int64("amount", out.Amount).Str("coupon", out.CouponCode).Msg("payment created")
	}
	return out, reused, nil
}

func (u *paymentUC) Quote(ctx context.Context, caller model.Caller, userID, planID, couponCode string) (*model.PaymentDraft, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	plan, err := u.purchasablePlan(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	draft := model.NewPaymentDraft(userID, planID, basePrice(plan))
	code := model.NormalizeCouponCode(couponCode)
	if code == "" {
		return draft, nil
	}
	c, err := u.coupons.FindByCode(ctx, repository.NoTX, code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		c = nil
	}
	return draft.WithCoupon(c, time.Now()), nil
}

// loadPayment fetches a payment outside any transaction, used to learn the
// owning user before taking that user's lock.
func (u *paymentUC) loadPayment(ctx context.Context, id string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return p, nil
}

func (u *paymentUC) ReplacePendingCoupon(ctx context.Context, caller model.Caller, paymentID, couponCode string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.ReplacePendingCoupon")()
	p, err := u.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(caller, p.UserID); err != nil {
		return nil, err
	}

	var out *model.Payment
	err = u.withUser(ctx, p.UserID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		old, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, "payment")
		}
		if old.Status != model.PaymentStatusPending {
			return fmt.Errorf("%w: only pending payments can take a coupon", domain.ErrInvalidState)
		}
		if old.CouponCode != "" {
			if err := u.coupons.ReleaseUsage(ctx, tx, old.CouponCode); err != nil {
				return err
			}
			metrics.IncCouponRedemption("released")
		}
		if err := u.payments.Delete(ctx, tx, old.ID); err != nil {
			return err
		}

		now := time.Now()
		q, err := redeemCoupon(ctx, u.coupons, tx, couponCode, old.OriginalAmount, now)
		if err != nil {
			return err
		}
		draft := model.NewPaymentDraft(old.UserID, old.PlanID, old.OriginalAmount)
		draft.Quote = q
		draft.SubscriptionRequestID = old.SubscriptionRequestID

		np := draft.NewPayment(uuid.NewString(), now)
		np.TransactionID = old.TransactionID
		if err := u.payments.Insert(ctx, tx, np); err != nil {
			return err
		}
		out = np
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment("replaced")
	logging.With(ctx, u.log).Info().
		Str("old_payment_id", paymentID).Str("payment_id", out.ID).
		Int64("amount", out.Amount).Str("coupon", out.CouponCode).
		Msg("pending payment replaced")
	return out, nil
}

func (u *paymentUC) RecordTransactionReference(ctx context.Context, caller model.Caller, paymentID, transactionID string) (*model.Payment, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transactionId is required", domain.ErrValidation)
	}
	p, err := u.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(caller, p.UserID); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && u.limiter != nil && u.policy.TransactionRateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, "rate_limit:txn:"+caller.ID, u.policy.TransactionRateLimit, u.policy.RateWindow)
		if err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimitTriggered("transaction")
			return nil, fmt.Errorf("%w: too many transaction submissions, try again later", domain.ErrRateLimited)
		}
	}

	if err := u.payments.SetTransactionID(ctx, repository.NoTX, paymentID, transactionID); err != nil {
		return nil, notFound(err, "payment")
	}
	p.TransactionID = transactionID
	p.UpdatedAt = time.Now()
	logging.With(ctx, u.log).Info().Str("payment_id", p.ID).Str("user_id", p.UserID).Msg("transaction reference recorded")

	n := adapter.AdminNotification{
		Kind:          adapter.NotifyTransactionSubmitted,
		UserID:        p.UserID,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		TransactionID: transactionID,
	}
	if plan, err := u.plans.FindByID(ctx, repository.NoTX, p.PlanID); err == nil {
		n.PlanName = plan.Name
	}
	if user, err := u.users.FindByID(ctx, repository.NoTX, p.UserID); err == nil {
		n.UserName = user.Name
	}
	notify(ctx, u.notifier, u.log, n)
	return p, nil
}

func (u *paymentUC) SetStatus(ctx context.Context, caller model.Caller, paymentID string, status model.PaymentStatus, transactionID *string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.SetStatus")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, status)
	}
	p, err := u.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var res statusResult
	err = u.withUser(ctx, p.UserID, func(ctx context.Context, tx repository.Tx, user *model.User) error {
		r, err := u.setStatusTx(ctx, tx, caller, user, paymentID, status, transactionID, time.Now())
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}
	u.afterStatus(ctx, res)
	return res.payment, nil
}

type statusResult struct {
	payment   *model.Payment
	changed   bool
	activated *model.Subscription
	planName  string
}

// setStatusTx applies a status change inside the caller's transaction. The
// user row must already be locked. Completing a payment activates the
// subscription unless it is already approved or restored.
func (u *paymentUC) setStatusTx(ctx context.Context, tx repository.Tx, caller model.Caller, user *model.User, paymentID string, status model.PaymentStatus, transactionID *string, now time.Time) (statusResult, error) {
	p, err := u.payments.FindByID(ctx, tx, paymentID)
	if err != nil {
		return statusResult{}, notFound(err, "payment")
	}
	if p.UserID != user.ID {
		return statusResult{}, fmt.Errorf("%w: payment does not belong to this user", domain.ErrValidation)
	}

	if transactionID != nil {
		if txID := strings.TrimSpace(*transactionID); txID != "" && txID != p.TransactionID {
			if err := u.payments.SetTransactionID(ctx, tx, p.ID, txID); err != nil {
				return statusResult{}, err
			}
			p.TransactionID = txID
		}
	}

	if p.Status == model.PaymentStatusCompleted {
		if status != model.PaymentStatusCompleted {
			return statusResult{}, fmt.Errorf("%w: completed payments cannot change status", domain.ErrInvalidState)
		}
		return statusResult{payment: p}, nil
	}
	if p.Status == status {
		return statusResult{payment: p}, nil
	}

	var paidAt *time.Time
	if status == model.PaymentStatusCompleted {
		t := now
		paidAt = &t
	}
	if err := u.payments.UpdateStatus(ctx, tx, p.ID, status, paidAt); err != nil {
		return statusResult{}, err
	}
	p.Status = status
	p.PaidAt = paidAt
	p.UpdatedAt = now
	res := statusResult{payment: p, changed: true}

	if status != model.PaymentStatusCompleted {
		return res, nil
	}
	plan, err := u.plans.FindByID(ctx, tx, p.PlanID)
	if err != nil {
		return statusResult{}, notFound(err, "plan")
	}
	res.planName = plan.Name

	requestID := newRequestID()
	if p.SubscriptionRequestID != nil {
		requestID = *p.SubscriptionRequestID
	}
	prev := user.Subscription
	next := model.Activated(prev, plan, requestID, now)
	if next == nil {
		return res, nil
	}
	if err := u.users.SaveSubscription(ctx, tx, user.ID, next); err != nil {
		return statusResult{}, err
	}
	ev := model.NewSubscriptionEvent(newRequestID(), user.ID, caller.ID, model.ActionActivate, prev, next, "payment "+p.ID+" completed", now)
	if err := u.events.Append(ctx, tx, ev); err != nil {
		return statusResult{}, err
	}
	user.Subscription = next
	res.activated = next
	return res, nil
}

// afterStatus emits metrics, logs and notifications once the transaction committed.
func (u *paymentUC) afterStatus(ctx context.Context, res statusResult) {
	if !res.changed {
		return
	}
	p := res.payment
	metrics.IncPayment(string(p.Status))
	log := logging.With(ctx, u.log).Info().Str("payment_id", p.ID).Str("user_id", p.UserID).Str("status", string(p.Status))
	if p.Status != model.PaymentStatusCompleted {
		log.Msg("payment status changed")
		return
	}
	metrics.AddPaymentRevenue(u.policy.Currency, p.Amount)
	if res.activated != nil {
		metrics.IncSubscriptionTransition(model.ActionActivate, "ok")
		log = log.Time("end_date", res.activated.EndDate)
	}
	log.Bool("activated", res.activated != nil).Msg("payment completed")
	notify(ctx, u.notifier, u.log, adapter.AdminNotification{
		Kind:      adapter.NotifyPaymentCompleted,
		UserID:    p.UserID,
		PlanName:  res.planName,
		PaymentID: p.ID,
		Amount:    p.Amount,
	})
}

func (u *paymentUC) Get(ctx context.Context, caller model.Caller, id string) (*model.Payment, error) {
	p, err := u.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(caller, p.UserID); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *paymentUC) ListByUser(ctx context.Context, caller model.Caller, userID string) ([]*model.Payment, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	return u.payments.ListByUser(ctx, repository.NoTX, userID)
}

func (u *paymentUC) ListAll(ctx context.Context, caller model.Caller) ([]*model.Payment, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return u.payments.ListAll(ctx, repository.NoTX)
}

// Delete removes a payment. Deleting a pending payment gives its coupon use back.
func (u *paymentUC) Delete(ctx context.Context, caller model.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	p, err := u.loadPayment(ctx, id)
	if err != nil {
		return err
	}
	err = u.withUser(ctx, p.UserID, func(ctx context.Context, tx repository.Tx, _ *model.User) error {
		cur, err := u.payments.FindByID(ctx, tx, id)
		if err != nil {
			return notFound(err, "payment")
		}
		if cur.Status == model.PaymentStatusPending && cur.CouponCode != "" {
			if err := u.coupons.ReleaseUsage(ctx, tx, cur.CouponCode); err != nil {
				return err
			}
		}
		return u.payments.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Str("payment_id", id).Msg("payment deleted")
	return nil
}
