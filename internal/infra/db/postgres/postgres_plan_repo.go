package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, description, price, duration_months, features, is_best_value, has_discount,
  original_price, discount_price, discount_amount, is_active, created_at`

func scanPlan(row rowScanner) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationMonths, &p.Features,
		&p.IsBestValue, &p.HasDiscount, &p.OriginalPrice, &p.DiscountPrice, &p.DiscountAmount,
		&p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  name=$2, description=$3, price=$4, duration_months=$5, features=$6, is_best_value=$7,
  has_discount=$8, original_price=$9, discount_price=$10, discount_amount=$11, is_active=$12;`
	features := p.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Description, p.Price, p.DurationMonths, features,
		p.IsBestValue, p.HasDiscount, p.OriginalPrice, p.DiscountPrice, p.DiscountAmount, p.IsActive, p.CreatedAt)
	return mapErr("save plan", err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapErr("find plan", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY price ASC, created_at ASC;`)
	if err != nil {
		return nil, mapErr("list plans", err)
	}
	return collect(rows, "list plans", scanPlan)
}

// Deactivate soft-deletes a plan; payments and subscriptions keep referencing it.
func (r *PostgresPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE plans SET is_active=FALSE WHERE id=$1;`, id)
	if err != nil {
		return mapErr("deactivate plan", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("deactivate plan", errNoRows)
	}
	return nil
}
