package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the plan catalog. Reads are public; writes are admin-only.
type PlanUseCase interface {
	List(ctx context.Context) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	Create(ctx context.Context, caller model.Caller, p *model.Plan) (*model.Plan, error)
	Update(ctx context.Context, caller model.Caller, id string, p *model.Plan) (*model.Plan, error)
	// Delete soft-deletes; the plan stays readable for historical payments.
	Delete(ctx context.Context, caller model.Caller, id string) error
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, log: logging.Component(logger, "PlanUC")}
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.List")()
	return u.plans.ListActive(ctx, repository.NoTX)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	p, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	return p, nil
}

func (u *planUC) Create(ctx context.Context, caller model.Caller, in *model.Plan) (*model.Plan, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	p, err := model.NewPlan(uuid.NewString(), in.Name, in.Description, in.Price, in.DurationMonths, in.Features)
	if err != nil {
		return nil, err
	}
	p.IsBestValue = in.IsBestValue
	p.HasDiscount = in.HasDiscount
	p.OriginalPrice = in.OriginalPrice
	p.DiscountPrice = in.DiscountPrice
	p.DiscountAmount = in.DiscountAmount
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("plan_id", p.ID).Str("name", p.Name).Msg("plan created")
	return p, nil
}

func (u *planUC) Update(ctx context.Context, caller model.Caller, id string, in *model.Plan) (*model.Plan, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	cur, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	next := *in
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, repository.NoTX, &next); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("plan_id", id).Msg("plan updated")
	return &next, nil
}

func (u *planUC) Delete(ctx context.Context, caller model.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := u.plans.Deactivate(ctx, repository.NoTX, id); err != nil {
		return notFound(err, "plan")
	}
	logging.With(ctx, u.log).Info().Str("plan_id", id).Msg("plan deactivated")
	return nil
}
