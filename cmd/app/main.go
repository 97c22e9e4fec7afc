// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"gym-membership/internal/config"
	"gym-membership/internal/domain/ports/adapter"
	tele "gym-membership/internal/infra/adapters/telegram"
	"gym-membership/internal/infra/api"
	pg "gym-membership/internal/infra/db/postgres"
	"gym-membership/internal/infra/i18n"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
	red "gym-membership/internal/infra/redis"
	"gym-membership/internal/infra/sched"
	"gym-membership/internal/infra/worker"
	"gym-membership/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("gym-membership stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txm := pg.NewTxManager(pool)
	userLocker := pg.NewAdvisoryLocker()
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	couponRepo := pg.NewCouponRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	eventRepo := pg.NewSubscriptionEventRepo(pool)
	settingsRepo := pg.NewPaymentSettingsRepo(pool)

	// ---- Notifications ----
	jobs := worker.NewPool(cfg.Telegram.Workers, cfg.Telegram.QueueSize, logger)
	jobs.Start(context.Background())
	defer jobs.Stop()

	var notifier adapter.Notifier = tele.NewNoopNotifier(logger)
	if cfg.Telegram.Enabled {
		tr, err := i18n.NewTranslator(i18n.LocalesFS, "en", cfg.Billing.Currency)
		if err != nil {
			return fmt.Errorf("i18n: %w", err)
		}
		bot, err := tele.NewBotNotifier(&cfg.Telegram, tr, logger)
		if err != nil {
			return err
		}
		notifier = tele.NewAsyncNotifier(bot, jobs, logger)
	}

	// ---- Use cases ----
	auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	subUC := usecase.NewSubscriptionUseCase(userRepo, planRepo, payRepo, eventRepo, txm, userLocker, notifier, logger)
	payUC := usecase.NewPaymentUseCase(payRepo, planRepo, couponRepo, userRepo, eventRepo, txm, userLocker, rateLimiter, notifier,
		usecase.PaymentPolicy{
			Currency:             cfg.Billing.Currency,
			TransactionRateLimit: cfg.Billing.TransactionRateLimit,
			RateWindow:           cfg.Billing.RateWindow,
		}, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, payRepo, logger)

	svc := api.Services{
		Users: usecase.NewUserUseCase(userRepo, txm, auth, rateLimiter, locker,
			usecase.AuthPolicy{LoginRateLimit: cfg.Auth.LoginRateLimit, RateWindow: cfg.Auth.RateWindow}, logger),
		Plans:         usecase.NewPlanUseCase(planRepo, logger),
		Coupons:       usecase.NewCouponUseCase(couponRepo, txm, logger),
		Payments:      payUC,
		Subscriptions: subUC,
		Lifecycle:     usecase.NewLifecycleUseCase(subUC, payUC, logger),
		Settings:      usecase.NewPaymentSettingsUseCase(settingsRepo, logger),
		Stats:         statsUC,
	}

	// ---- Background ----
	refresher := sched.NewStatsRefresher(cfg.Stats.RefreshInterval, statsUC, logger, func() { pg.ReportPoolStats(pool) })
	go func() { _ = refresher.Run(ctx) }()

	// ---- HTTP ----
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.NewServer(svc, auth, logger, cfg.HTTP.RequestTimeout).Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
