package repository

import (
	"context"
	"time"

	"gym-membership/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Insert stores a new payment. A second pending payment for the same
	// (user, plan) yields domain.ErrConflict.
	Insert(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindPendingByUserPlan(ctx context.Context, tx Tx, userID, planID string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Payment, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Payment, error)
	Delete(ctx context.Context, tx Tx, id string) error

	SetTransactionID(ctx context.Context, tx Tx, id, transactionID string) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, paidAt *time.Time) error
	// ReconcilePending moves the newest failed payment for (user, plan) back
	// to pending when no pending one exists, and reports how many rows moved.
	ReconcilePending(ctx context.Context, tx Tx, userID, planID string) (int64, error)
	SumCompleted(ctx context.Context, tx Tx) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int, error)
}
