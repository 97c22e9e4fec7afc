package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, phone, address, gender, membership_id, created_at,
  sub_plan_id, sub_request_id, sub_start_date, sub_end_date, sub_is_active, sub_status,
  sub_terminated_at, sub_termination_reason, sub_rejection_reason, sub_requested_at`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		planID    *string
		requestID *string
		start     *time.Time
		end       *time.Time
		isActive  *bool
		status    *string
		termAt    *time.Time
		termWhy   *string
		rejectWhy *string
		reqAt     *time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.Gender,
		&u.MembershipID, &u.CreatedAt,
		&planID, &requestID, &start, &end, &isActive, &status, &termAt, &termWhy, &rejectWhy, &reqAt); err != nil {
		return nil, err
	}
	if planID == nil || status == nil {
		return &u, nil
	}
	s := &model.Subscription{
		PlanID:       *planID,
		Status:       model.SubscriptionStatus(*status),
		TerminatedAt: termAt,
	}
	if requestID != nil {
		s.RequestID = *requestID
	}
	if start != nil {
		s.StartDate = *start
	}
	if end != nil {
		s.EndDate = *end
	}
	if isActive != nil {
		s.IsActive = *isActive
	}
	if termWhy != nil {
		s.TerminationReason = *termWhy
	}
	if rejectWhy != nil {
		s.RejectionReason = *rejectWhy
	}
	if reqAt != nil {
		s.RequestedAt = *reqAt
	}
	u.Subscription = s
	return &u, nil
}

// Save upserts the profile columns. The embedded subscription is only
// written through SaveSubscription.
func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, password_hash, role, phone, address, gender, membership_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$2, email=$3, password_hash=$4, role=$5, phone=$6, address=$7, gender=$8, membership_id=$9;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role),
		u.Phone, u.Address, u.Gender, u.MembershipID, u.CreatedAt)
	return mapErr("save user", err)
}

func (r *userRepo) findOne(ctx context.Context, tx repository.Tx, op, where string, arg interface{}) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, "find user", "id=$1", id)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.findOne(ctx, tx, "find user by email", "email=$1", email)
}

func (r *userRepo) List(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC;`)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	return collect(rows, "list users", scanUser)
}

func (r *userRepo) SaveSubscription(ctx context.Context, tx repository.Tx, userID string, s *model.Subscription) error {
	const q = `
UPDATE users SET
  sub_plan_id=$2, sub_request_id=$3, sub_start_date=$4, sub_end_date=$5, sub_is_active=$6, sub_status=$7,
  sub_terminated_at=$8, sub_termination_reason=$9, sub_rejection_reason=$10, sub_requested_at=$11
WHERE id=$1;`
	var args []interface{}
	if s == nil {
		args = []interface{}{userID, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	} else {
		args = []interface{}{userID, s.PlanID, s.RequestID, s.StartDate, s.EndDate, s.IsActive, string(s.Status),
			s.TerminatedAt, s.TerminationReason, s.RejectionReason, s.RequestedAt}
	}
	ct, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return mapErr("save subscription", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("save subscription", errNoRows)
	}
	return nil
}

func (r *userRepo) SetMembershipID(ctx context.Context, tx repository.Tx, userID, membershipID string) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE users SET membership_id=$2 WHERE id=$1;`, userID, membershipID)
	if err != nil {
		return mapErr("set membership id", err)
	}
	if ct.RowsAffected() == 0 {
		return mapErr("set membership id", errNoRows)
	}
	return nil
}

func (r *userRepo) MembershipIDExists(ctx context.Context, tx repository.Tx, membershipID string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE membership_id=$1);`, membershipID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, mapErr("membership id exists", err)
	}
	return exists, nil
}

func (r *userRepo) ListWithoutMembershipID(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE membership_id IS NULL ORDER BY created_at;`)
	if err != nil {
		return nil, mapErr("list users without membership id", err)
	}
	return collect(rows, "list users without membership id", scanUser)
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapErr("count users", err)
	}
	return n, nil
}

func (r *userRepo) CountBySubscriptionStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT sub_status, COUNT(*) FROM users WHERE sub_status IS NOT NULL GROUP BY sub_status;`)
	if err != nil {
		return nil, mapErr("count subscriptions", err)
	}
	defer rows.Close()
	out := map[model.SubscriptionStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapErr("count subscriptions", err)
		}
		out[model.SubscriptionStatus(status)] = n
	}
	return out, mapErr("count subscriptions", rows.Err())
}
