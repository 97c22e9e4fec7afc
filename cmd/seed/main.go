package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gym-membership/internal/config"
	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	pg "gym-membership/internal/infra/db/postgres"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin-email", "admin@gym.local", "email of the admin account to create")
	adminPassword := flag.String("admin-password", "", "password of the admin account (required)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	// ---- Admin ----
	users := pg.NewUserRepo(pool)
	if *adminPassword == "" {
		logger.Warn().Msg("-admin-password not set; skipping admin account")
	} else if _, err := users.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(*adminEmail)); errors.Is(err, domain.ErrNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash admin password")
		}
		admin, err := model.NewUser("", "Administrator", *adminEmail, string(hash), model.RoleAdmin)
		if err != nil {
			logger.Fatal().Err(err).Msg("admin account")
		}
		if err := users.Save(ctx, repository.NoTX, admin); err != nil {
			logger.Fatal().Err(err).Msg("save admin account")
		}
		logger.Info().Str("email", admin.Email).Msg("seeded admin account")
	} else if err != nil {
		logger.Fatal().Err(err).Msg("lookup admin account")
	}

	// ---- Plans ----
	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), logger)
	plans, err := planUC.List(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("list plans")
	}
	if len(plans) > 0 {
		logger.Info().Int("count", len(plans)).Msg("plans already present, skipping plans and coupons")
		return
	}

	// prices are in paise
	seed := []*model.Plan{
		{Name: "Monthly", Description: "Full gym floor access", Price: 1_500_00, DurationMonths: 1,
			Features: []string{"Gym floor", "Locker"}},
		{Name: "Quarterly", Description: "Three months with group classes", Price: 4_000_00, DurationMonths: 3,
			Features: []string{"Gym floor", "Locker", "Group classes"}, HasDiscount: true,
			OriginalPrice: 4_500_00, DiscountPrice: 4_000_00, DiscountAmount: 500_00},
		{Name: "Annual", Description: "Twelve months, all facilities", Price: 14_000_00, DurationMonths: 12,
			Features: []string{"Gym floor", "Locker", "Group classes", "Personal trainer session"}, IsBestValue: true},
	}
	for _, p := range seed {
		created, err := planUC.Create(ctx, model.SystemCaller, p)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", p.Name).Msg("create plan")
		}
		logger.Info().Str("plan_id", created.ID).Str("name", created.Name).Int64("price", created.Price).Msg("seeded plan")
	}

	// ---- Coupons ----
	couponUC := usecase.NewCouponUseCase(pg.NewCouponRepo(pool), pg.NewTxManager(pool), logger)
	maxDiscount, limit := int64(500_00), int64(100)
	now := time.Now()
	coupons := []*model.Coupon{
		{Code: "WELCOME10", DiscountType: model.DiscountPercentage, DiscountValue: 10, MaxDiscount: &maxDiscount,
			ValidFrom: now, ValidUntil: now.AddDate(1, 0, 0), UsageLimit: &limit, IsActive: true},
		{Code: "FLAT200", DiscountType: model.DiscountFixed, DiscountValue: 200_00, MinPurchase: 1_000_00,
			ValidFrom: now, ValidUntil: now.AddDate(0, 3, 0), IsActive: true},
	}
	for _, c := range coupons {
		created, err := couponUC.Create(ctx, model.SystemCaller, c)
		if err != nil {
			logger.Fatal().Err(err).Str("code", c.Code).Msg("create coupon")
		}
		logger.Info().Str("code", created.Code).Msg("seeded coupon")
	}

	// ---- Payment settings ----
	settingsUC := usecase.NewPaymentSettingsUseCase(pg.NewPaymentSettingsRepo(pool), logger)
	if _, err := settingsUC.Update(ctx, model.SystemCaller, &model.PaymentSettings{
		UpiID:    "gym@upi",
		BankName: "Example Bank",
		IsActive: true,
	}); err != nil {
		logger.Fatal().Err(err).Msg("payment settings")
	}

	logger.Info().Msg("seeding complete")
}
