package repository

import (
	"context"

	"gym-membership/internal/domain/model"
)

// -----------------------------
// Plans
// -----------------------------

type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	// FindByID returns soft-deleted plans too; historical payments still reference them.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
	Deactivate(ctx context.Context, tx Tx, id string) error
}
