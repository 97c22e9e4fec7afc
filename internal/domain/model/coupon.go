package model

import (
	"fmt"
	"strings"
	"time"

	"gym-membership/internal/domain"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code. UsageLimit nil means unlimited redemptions;
// MaxDiscount nil (or zero) means the percentage discount is not capped.
type Coupon struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue int64        `json:"discountValue"`
	MinPurchase   int64        `json:"minPurchase"`
	MaxDiscount   *int64       `json:"maxDiscount,omitempty"`
	ValidFrom     time.Time    `json:"validFrom"`
	ValidUntil    time.Time    `json:"validUntil"`
	UsageLimit    *int64       `json:"usageLimit,omitempty"`
	UsedCount     int64        `json:"usedCount"`
	IsActive      bool         `json:"isActive"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// NormalizeCouponCode upper-cases and trims a user supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) Validate() error {
	c.Code = NormalizeCouponCode(c.Code)
	switch {
	case c.Code == "":
		return fmt.Errorf("%w: coupon code is required", domain.ErrValidation)
	case c.DiscountType != DiscountPercentage && c.DiscountType != DiscountFixed:
		return fmt.Errorf("%w: discount type must be percentage or fixed", domain.ErrValidation)
	case c.DiscountValue <= 0:
		return fmt.Errorf("%w: discount value must be positive", domain.ErrValidation)
	case c.DiscountType == DiscountPercentage && c.DiscountValue > 100:
		return fmt.Errorf("%w: percentage discount cannot exceed 100", domain.ErrValidation)
	case c.MinPurchase < 0:
		return fmt.Errorf("%w: minimum purchase must not be negative", domain.ErrValidation)
	case c.MaxDiscount != nil && *c.MaxDiscount < 0:
		return fmt.Errorf("%w: max discount must not be negative", domain.ErrValidation)
	case c.UsageLimit != nil && *c.UsageLimit < 0:
		return fmt.Errorf("%w: usage limit must not be negative", domain.ErrValidation)
	case c.ValidFrom.IsZero() || c.ValidUntil.IsZero():
		return fmt.Errorf("%w: validity window is required", domain.ErrValidation)
	case c.ValidUntil.Before(c.ValidFrom):
		return fmt.Errorf("%w: validUntil is before validFrom", domain.ErrValidation)
	}
	return nil
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// InWindow reports whether now lies in [ValidFrom, ValidUntil].
func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// Redeemable reports whether the coupon can grant a discount right now,
// ignoring the purchase amount.
func (c *Coupon) Redeemable(now time.Time) bool {
	return c != nil && c.IsActive && c.InWindow(now) && !c.Exhausted()
}

// CouponQuote is the outcome of applying a code to an amount. A zero
// DiscountAmount with an empty AppliedCode means no discount was granted.
type CouponQuote struct {
	BaseAmount     int64  `json:"baseAmount"`
	FinalAmount    int64  `json:"finalAmount"`
	DiscountAmount int64  `json:"discountAmount"`
	AppliedCode    string `json:"appliedCode"`
}

func NoDiscount(base int64) CouponQuote {
	return CouponQuote{BaseAmount: base, FinalAmount: base}
}

func (q CouponQuote) Applied() bool { return q.AppliedCode != "" && q.DiscountAmount > 0 }

// Quote computes the discount for base without mutating the coupon.
// Ineligible coupons produce NoDiscount(base) rather than an error.
func (c *Coupon) Quote(base int64, now time.Time) CouponQuote {
	if !c.Redeemable(now) || base < c.MinPurchase || base <= 0 {
		return NoDiscount(base)
	}

	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		// round half up in minor units
		discount = (base*c.DiscountValue + 50) / 100
		if c.MaxDiscount != nil && *c.MaxDiscount > 0 && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return NoDiscount(base)
	}
	// amount == original - discount must hold, so the discount never exceeds base
	if discount > base {
		discount = base
	}
	if discount <= 0 {
		return NoDiscount(base)
	}
	return CouponQuote{
		BaseAmount:     base,
		FinalAmount:    base - discount,
		DiscountAmount: discount,
		AppliedCode:    c.Code,
	}
}
