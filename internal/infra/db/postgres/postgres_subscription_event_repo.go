package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

var (
	_ repository.SubscriptionEventRepository = (*subscriptionEventRepo)(nil)
	_ repository.PaymentSettingsRepository   = (*paymentSettingsRepo)(nil)
)

type subscriptionEventRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionEventRepo(pool *pgxpool.Pool) *subscriptionEventRepo {
	return &subscriptionEventRepo{pool: pool}
}

func (r *subscriptionEventRepo) Append(ctx context.Context, tx repository.Tx, ev *model.SubscriptionEvent) error {
	const q = `
INSERT INTO subscription_events (id, request_id, user_id, plan_id, action, from_status, to_status, reason, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := execSQL(ctx, r.pool, tx, q, ev.ID, ev.RequestID, ev.UserID, ev.PlanID, string(ev.Action),
		string(ev.FromStatus), string(ev.ToStatus), ev.Reason, ev.ActorID, ev.CreatedAt)
	return mapErr("append subscription event", err)
}

func scanEvent(row rowScanner) (*model.SubscriptionEvent, error) {
	var (
		ev               model.SubscriptionEvent
		action, from, to string
	)
	if err := row.Scan(&ev.ID, &ev.RequestID, &ev.UserID, &ev.PlanID, &action, &from, &to,
		&ev.Reason, &ev.ActorID, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.Action = model.SubscriptionAction(action)
	ev.FromStatus = model.SubscriptionStatus(from)
	ev.ToStatus = model.SubscriptionStatus(to)
	return &ev, nil
}

// ListByUser returns events oldest first; ids are ULIDs so they sort by time.
func (r *subscriptionEventRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionEvent, error) {
	const q = `
SELECT id, request_id, user_id, plan_id, action, from_status, to_status, reason, actor_id, created_at
  FROM subscription_events WHERE user_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapErr("list subscription events", err)
	}
	return collect(rows, "list subscription events", scanEvent)
}

type paymentSettingsRepo struct{ pool *pgxpool.Pool }

func NewPaymentSettingsRepo(pool *pgxpool.Pool) *paymentSettingsRepo {
	return &paymentSettingsRepo{pool: pool}
}

func (r *paymentSettingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.PaymentSettings, error) {
	row, err := pickRow(ctx, r.pool, tx, `
SELECT upi_id, bank_name, account_number, ifsc_code, is_active, updated_at FROM payment_settings WHERE id=1;`)
	if err != nil {
		return nil, err
	}
	var s model.PaymentSettings
	if err := row.Scan(&s.UpiID, &s.BankName, &s.AccountNumber, &s.IfscCode, &s.IsActive, &s.UpdatedAt); err != nil {
		return nil, mapErr("get payment settings", err)
	}
	return &s, nil
}

func (r *paymentSettingsRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.PaymentSettings) error {
	const q = `
INSERT INTO payment_settings (id, upi_id, bank_name, account_number, ifsc_code, is_active, updated_at)
VALUES (1,$1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  upi_id=$1, bank_name=$2, account_number=$3, ifsc_code=$4, is_active=$5, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, s.UpiID, s.BankName, s.AccountNumber, s.IfscCode, s.IsActive, s.UpdatedAt)
	return mapErr("save payment settings", err)
}
