package repository

import (
	"context"

	"gym-membership/internal/domain/model"
)

// -----------------------------
// Users (with embedded subscription)
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	// FindByID locks the row (FOR UPDATE) when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	List(ctx context.Context, tx Tx) ([]*model.User, error)
	// SaveSubscription replaces the embedded subscription columns only.
	SaveSubscription(ctx context.Context, tx Tx, userID string, s *model.Subscription) error
	SetMembershipID(ctx context.Context, tx Tx, userID, membershipID string) error
	MembershipIDExists(ctx context.Context, tx Tx, membershipID string) (bool, error)
	ListWithoutMembershipID(ctx context.Context, tx Tx) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountBySubscriptionStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
