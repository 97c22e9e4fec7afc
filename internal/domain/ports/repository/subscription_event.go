package repository

import (
	"context"

	"gym-membership/internal/domain/model"
)

// SubscriptionEventRepository is append-only.
type SubscriptionEventRepository interface {
	Append(ctx context.Context, tx Tx, ev *model.SubscriptionEvent) error
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SubscriptionEvent, error)
}

type PaymentSettingsRepository interface {
	// Get returns domain.ErrNotFound until settings are first saved.
	Get(ctx context.Context, tx Tx) (*model.PaymentSettings, error)
	Upsert(ctx context.Context, tx Tx, s *model.PaymentSettings) error
}
