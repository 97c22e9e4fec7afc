package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

const couponColumns = `id, code, discount_type, discount_value, min_purchase, max_discount,
  valid_from, valid_until, usage_limit, used_count, is_active, created_at`

func scanCoupon(row rowScanner) (*model.Coupon, error) {
	var (
		c     model.Coupon
		dtype string
	)
	if err := row.Scan(&c.ID, &c.Code, &dtype, &c.DiscountValue, &c.MinPurchase, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidUntil, &c.UsageLimit, &c.UsedCount, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.DiscountType = model.DiscountType(dtype)
	return &c, nil
}

// Save upserts by id. used_count is never written here; only the
// redemption statements below move it.
func (r *couponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (` + couponColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  code=$2, discount_type=$3, discount_value=$4, min_purchase=$5, max_discount=$6,
  valid_from=$7, valid_until=$8, usage_limit=$9, is_active=$11;`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinPurchase,
		c.MaxDiscount, c.ValidFrom, c.ValidUntil, c.UsageLimit, c.UsedCount, c.IsActive, c.CreatedAt)
	return mapErr("save coupon", err)
}

func (r *couponRepo) findOne(ctx context.Context, tx repository.Tx, op, where, arg string) (*model.Coupon, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+couponColumns+` FROM coupons WHERE `+where+`;`, arg)
	if err != nil {
		return nil, err
	}
	c, err := scanCoupon(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return c, nil
}

func (r *couponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	return r.findOne(ctx, tx, "find coupon", "id=$1", id)
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	return r.findOne(ctx, tx, "find coupon by code", "code=$1", code)
}

func (r *couponRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Coupon, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC;`)
	if err != nil {
		return nil, mapErr("list coupons", err)
	}
	return collect(rows, "list coupons", scanCoupon)
}

func (r *couponRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM coupons WHERE id=$1;`, id)
	if err != nil {
		return mapErr("delete coupon", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("delete coupon", errNoRows)
	}
	return nil
}

func (r *couponRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE coupons SET used_count = used_count + 1
 WHERE id=$1 AND is_active AND (usage_limit IS NULL OR used_count < usage_limit);`
	ct, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapErr("increment coupon usage", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *couponRepo) ReleaseUsage(ctx context.Context, tx repository.Tx, code string) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE coupons SET used_count = GREATEST(used_count - 1, 0) WHERE code=$1;`, code)
	return mapErr("release coupon usage", err)
}
