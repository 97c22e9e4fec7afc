package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Summary(ctx context.Context, caller model.Caller) (*Stats, error)
	// RefreshGauges recomputes the subscription gauges; it never mutates data.
	RefreshGauges(ctx context.Context) error
}

type Stats struct {
	Users         int                              `json:"users"`
	Subscriptions map[model.SubscriptionStatus]int `json:"subscriptions"`
	Payments      map[model.PaymentStatus]int      `json:"payments"`
	Revenue       int64                            `json:"revenue"`
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, payments: payments, log: logging.Component(logger, "StatsUC")}
}

func (s *statsUC) Summary(ctx context.Context, caller model.Caller) (*Stats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	subs, err := s.users.CountBySubscriptionStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.SumCompleted(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Subscriptions: subs, Payments: payments, Revenue: revenue}, nil
}

func (s *statsUC) RefreshGauges(ctx context.Context) error {
	defer logging.TraceDuration(s.log, "StatsUC.RefreshGauges")()
	subs, err := s.users.CountBySubscriptionStatus(ctx, repository.NoTX)
	if err != nil {
		return err
	}
	metrics.SetSubscriptionsTotal(subs)
	return nil
}
