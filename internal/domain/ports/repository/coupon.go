package repository

import (
	"context"

	"gym-membership/internal/domain/model"
)

// -----------------------------
// Coupons
// -----------------------------

type CouponRepository interface {
	// Save inserts or updates by id. A duplicate code yields domain.ErrConflict.
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
	List(ctx context.Context, tx Tx) ([]*model.Coupon, error)
	Delete(ctx context.Context, tx Tx, id string) error

	// IncrementUsage is a compare-and-increment: it bumps used_count only
	// while the coupon is active and under its limit, and reports whether
	// it did.
	IncrementUsage(ctx context.Context, tx Tx, id string) (bool, error)
	// ReleaseUsage gives one redemption back, never going below zero.
	ReleaseUsage(ctx context.Context, tx Tx, code string) error
}
