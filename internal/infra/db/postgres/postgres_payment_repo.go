package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

// amount is a generated column (original_amount - discount_amount) and is
// only ever read.
const paymentColumns = `id, user_id, plan_id, subscription_request_id, amount, original_amount, discount_amount,
  coupon_code, transaction_id, status, paid_at, created_at, updated_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var (
		p      model.Payment
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.SubscriptionRequestID, &p.Amount, &p.OriginalAmount,
		&p.DiscountAmount, &p.CouponCode, &p.TransactionID, &status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, plan_id, subscription_request_id, original_amount, discount_amount,
  coupon_code, transaction_id, status, paid_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.PlanID, p.SubscriptionRequestID, p.OriginalAmount,
		p.DiscountAmount, p.CouponCode, p.TransactionID, string(p.Status), p.PaidAt, p.CreatedAt, p.UpdatedAt)
	return mapErr("insert payment", err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapErr("find payment", err)
	}
	return p, nil
}

func (r *paymentRepo) FindPendingByUserPlan(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 AND plan_id=$2 AND status='pending'`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID, planID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapErr("find pending payment", err)
	}
	return p, nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, mapErr("list user payments", err)
	}
	return collect(rows, "list user payments", scanPayment)
}

func (r *paymentRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC;`)
	if err != nil {
		return nil, mapErr("list payments", err)
	}
	return collect(rows, "list payments", scanPayment)
}

func (r *paymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM payments WHERE id=$1;`, id)
	if err != nil {
		return mapErr("delete payment", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("delete payment", errNoRows)
	}
	return nil
}

func (r *paymentRepo) SetTransactionID(ctx context.Context, tx repository.Tx, id, transactionID string) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE payments SET transaction_id=$2, updated_at=NOW() WHERE id=$1;`, id, transactionID)
	if err != nil {
		return mapErr("set transaction id", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("set transaction id", errNoRows)
	}
	return nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time) error {
	const q = `UPDATE payments SET status=$2, paid_at=COALESCE($3, paid_at), updated_at=NOW() WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(status), paidAt)
	if err != nil {
		return mapErr("update payment status", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("update payment status", errNoRows)
	}
	return nil
}

func (r *paymentRepo) ReconcilePending(ctx context.Context, tx repository.Tx, userID, planID string) (int64, error) {
	const q = `
UPDATE payments SET status='pending', updated_at=NOW()
 WHERE id = (
   SELECT id FROM payments
    WHERE user_id=$1 AND plan_id=$2 AND status='failed'
      AND NOT EXISTS (SELECT 1 FROM payments WHERE user_id=$1 AND plan_id=$2 AND status='pending')
    ORDER BY created_at DESC
    LIMIT 1
 );`
	ct, err := execSQL(ctx, r.pool, tx, q, userID, planID)
	if err != nil {
		return 0, mapErr("reconcile payments", err)
	}
	return ct.RowsAffected(), nil
}

func (r *paymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status='completed';`)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, mapErr("sum payments", err)
	}
	return sum, nil
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM payments GROUP BY status;`)
	if err != nil {
		return nil, mapErr("count payments", err)
	}
	defer rows.Close()
	out := map[model.PaymentStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapErr("count payments", err)
		}
		out[model.PaymentStatus(status)] = n
	}
	return out, mapErr("count payments", rows.Err())
}
