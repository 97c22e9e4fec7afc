package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/logging"
)

// Compile-time check
var _ PaymentSettingsUseCase = (*paymentSettingsUC)(nil)

type PaymentSettingsUseCase interface {
	// Get returns the manual payment instructions; empty settings when none are saved.
	Get(ctx context.Context) (*model.PaymentSettings, error)
	Update(ctx context.Context, caller model.Caller, in *model.PaymentSettings) (*model.PaymentSettings, error)
}

type paymentSettingsUC struct {
	repo repository.PaymentSettingsRepository
	log  *zerolog.Logger
}

func NewPaymentSettingsUseCase(repo repository.PaymentSettingsRepository, logger *zerolog.Logger) *paymentSettingsUC {
	return &paymentSettingsUC{repo: repo, log: logging.Component(logger, "PaymentSettingsUC")}
}

func (u *paymentSettingsUC) Get(ctx context.Context) (*model.PaymentSettings, error) {
	s, err := u.repo.Get(ctx, repository.NoTX)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.PaymentSettings{}, nil
	}
	return s, err
}

func (u *paymentSettingsUC) Update(ctx context.Context, caller model.Caller, in *model.PaymentSettings) (*model.PaymentSettings, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	s := *in
	s.UpiID = strings.TrimSpace(s.UpiID)
	s.BankName = strings.TrimSpace(s.BankName)
	s.AccountNumber = strings.TrimSpace(s.AccountNumber)
	s.IfscCode = strings.ToUpper(strings.TrimSpace(s.IfscCode))
	if s.UpiID == "" && s.AccountNumber == "" {
		return nil, fmt.Errorf("%w: a UPI id or bank account number is required", domain.ErrValidation)
	}
	s.UpdatedAt = time.Now()
	if err := u.repo.Upsert(ctx, repository.NoTX, &s); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Msg("payment settings updated")
	return &s, nil
}
