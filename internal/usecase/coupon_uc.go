package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

// CouponUseCase is the coupon engine plus coupon administration.
type CouponUseCase interface {
	// Apply redeems code against base. Ineligible codes are not an error:
	// they return the base amount with no discount and consume nothing.
	Apply(ctx context.Context, code string, base int64) (model.CouponQuote, error)
	// Quote previews Apply without consuming a redemption.
	Quote(ctx context.Context, code string, base int64) (model.CouponQuote, error)

	List(ctx context.Context, caller model.Caller) ([]*model.Coupon, error)
	ListActive(ctx context.Context) ([]*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	Create(ctx context.Context, caller model.Caller, c *model.Coupon) (*model.Coupon, error)
	Update(ctx context.Context, caller model.Caller, id string, c *model.Coupon) (*model.Coupon, error)
	Delete(ctx context.Context, caller model.Caller, id string) error
}

type couponUC struct {
	coupons repository.CouponRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewCouponUseCase(coupons repository.CouponRepository, tm repository.TransactionManager, logger *zerolog.Logger) *couponUC {
	return &couponUC{coupons: coupons, tm: tm, log: logging.Component(logger, "CouponUC")}
}

// redeemCoupon is the engine shared with the payment ledger. It must run in
// the caller's transaction so that a failed payment insert rolls the usage
// increment back with it.
func redeemCoupon(ctx context.Context, coupons repository.CouponRepository, tx repository.Tx, code string, base int64, now time.Time) (model.CouponQuote, error) {
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return model.NoDiscount(base), nil
	}
	c, err := coupons.FindByCode(ctx, tx, code)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncCouponRedemption("not_found")
		return model.NoDiscount(base), nil
	}
	if err != nil {
		return model.CouponQuote{}, err
	}

	q := c.Quote(base, now)
	if !q.Applied() {
		metrics.IncCouponRedemption("ineligible")
		return q, nil
	}
	// compare-and-increment; a concurrent redemption may have taken the last use
	ok, err := coupons.IncrementUsage(ctx, tx, c.ID)
	if err != nil {
		return model.CouponQuote{}, err
	}
	if !ok {
		metrics.IncCouponRedemption("exhausted")
		return model.NoDiscount(base), nil
	}
	metrics.IncCouponRedemption("applied")
	return q, nil
}

func (u *couponUC) Apply(ctx context.Context, code string, base int64) (model.CouponQuote, error) {
	defer logging.TraceDuration(u.log, "CouponUC.Apply")()
	var out model.CouponQuote
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		q, err := redeemCoupon(ctx, u.coupons, tx, code, base, time.Now())
		out = q
		return err
	})
	if err != nil {
		return model.CouponQuote{}, err
	}
	if out.Applied() {
		logging.With(ctx, u.log).Info().Str("code", out.AppliedCode).Int64("discount", out.DiscountAmount).Msg("coupon redeemed")
	}
	return out, nil
}

func (u *couponUC) Quote(ctx context.Context, code string, base int64) (model.CouponQuote, error) {
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return model.NoDiscount(base), nil
	}
	c, err := u.coupons.FindByCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		return model.NoDiscount(base), nil
	}
	if err != nil {
		return model.CouponQuote{}, err
	}
	return c.Quote(base, time.Now()), nil
}

func (u *couponUC) List(ctx context.Context, caller model.Caller) ([]*model.Coupon, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return u.coupons.List(ctx, repository.NoTX)
}

func (u *couponUC) ListActive(ctx context.Context) ([]*model.Coupon, error) {
	all, err := u.coupons.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]*model.Coupon, 0, len(all))
	for _, c := range all {
		if c.Redeemable(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (u *couponUC) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := u.coupons.FindByCode(ctx, repository.NoTX, model.NormalizeCouponCode(code))
	if err != nil {
		return nil, notFound(err, "coupon")
	}
	return c, nil
}

func (u *couponUC) Create(ctx context.Context, caller model.Caller, in *model.Coupon) (*model.Coupon, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	c := *in
	c.ID = uuid.NewString()
	c.UsedCount = 0
	c.CreatedAt = time.Now()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := u.coupons.Save(ctx, repository.NoTX, &c); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("coupon_id", c.ID).Str("code", c.Code).Msg("coupon created")
	return &c, nil
}

func (u *couponUC) Update(ctx context.Context, caller model.Caller, id string, in *model.Coupon) (*model.Coupon, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	cur, err := u.coupons.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFound(err, "coupon")
	}
	next := *in
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	// redemptions are only counted by the engine
	next.UsedCount = cur.UsedCount
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if next.UsageLimit != nil && *next.UsageLimit < next.UsedCount {
		return nil, fmt.Errorf("%w: usage limit is below the %d redemptions already made", domain.ErrValidation, next.UsedCount)
	}
	if err := u.coupons.Save(ctx, repository.NoTX, &next); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("coupon_id", id).Msg("coupon updated")
	return &next, nil
}

func (u *couponUC) Delete(ctx context.Context, caller model.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := u.coupons.Delete(ctx, repository.NoTX, id); err != nil {
		return notFound(err, "coupon")
	}
	logging.With(ctx, u.log).Info().Str("coupon_id", id).Msg("coupon deleted")
	return nil
}
