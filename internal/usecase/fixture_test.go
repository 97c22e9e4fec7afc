//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/usecase"
)

var (
	adminCaller = model.Caller{ID: "admin-1", Role: model.RoleAdmin}
	ctx         = context.Background()
)

func memberCaller(id string) model.Caller { return model.Caller{ID: id, Role: model.RoleUser} }

// testEnv wires every use case against one in-memory store.
type testEnv struct {
	store    *memStore
	tm       *MockTxManager
	users    *MockUserRepo
	plans    *MockPlanRepo
	coupons  *MockCouponRepo
	payments *MockPaymentRepo
	events   *MockEventRepo
	notifier *MockNotifier
	limiter  *MockRateLimiter
	locker   *MockLocker

	userUC     usecase.UserUseCase
	planUC     usecase.PlanUseCase
	couponUC   usecase.CouponUseCase
	paymentUC  usecase.PaymentUseCase
	subUC      usecase.SubscriptionUseCase
	lifecycle  usecase.LifecycleUseCase
	statsUC    usecase.StatsUseCase
	settingsUC usecase.PaymentSettingsUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := newMemStore()
	e := &testEnv{
		store:    s,
		tm:       &MockTxManager{store: s},
		users:    &MockUserRepo{s: s},
		plans:    &MockPlanRepo{s: s},
		coupons:  &MockCouponRepo{s: s},
		payments: &MockPaymentRepo{s: s},
		events:   &MockEventRepo{s: s},
		notifier: &MockNotifier{},
		limiter:  &MockRateLimiter{},
		locker:   &MockLocker{},
	}
	log := newTestLogger()
	userLocker := &MockUserLocker{}

	policy := usecase.PaymentPolicy{Currency: "INR", TransactionRateLimit: 3, RateWindow: time.Minute}
	subs := usecase.NewSubscriptionUseCase(e.users, e.plans, e.payments, e.events, e.tm, userLocker, e.notifier, log)
	payments := usecase.NewPaymentUseCase(e.payments, e.plans, e.coupons, e.users, e.events, e.tm, userLocker, e.limiter, e.notifier, policy, log)

	e.subUC = subs
	e.paymentUC = payments
	e.lifecycle = usecase.NewLifecycleUseCase(subs, payments, log)
	e.userUC = usecase.NewUserUseCase(e.users, e.tm, MockTokens{}, e.limiter, e.locker,
		usecase.AuthPolicy{LoginRateLimit: 3, RateWindow: time.Minute}, log)
	e.planUC = usecase.NewPlanUseCase(e.plans, log)
	e.couponUC = usecase.NewCouponUseCase(e.coupons, e.tm, log)
	e.statsUC = usecase.NewStatsUseCase(e.users, e.payments, log)
	e.settingsUC = usecase.NewPaymentSettingsUseCase(&MockSettingsRepo{s: s}, log)
	return e
}

func (e *testEnv) addUser(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := model.NewUser(id, "Member "+id, id+"@gym.test", "x", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, e.users.Save(ctx, repository.NoTX, u))
	return u
}

func (e *testEnv) addPlan(t *testing.T, id string, price int64, months int) *model.Plan {
	t.Helper()
	p, err := model.NewPlan(id, "Plan "+id, "test plan", price, months, []string{"gym"})
	require.NoError(t, err)
	require.NoError(t, e.plans.Save(ctx, repository.NoTX, p))
	return p
}

func (e *testEnv) addCoupon(t *testing.T, c model.Coupon) *model.Coupon {
	t.Helper()
	if c.ID == "" {
		c.ID = "coupon-" + c.Code
	}
	if c.ValidFrom.IsZero() {
		c.ValidFrom = time.Now().Add(-24 * time.Hour)
	}
	if c.ValidUntil.IsZero() {
		c.ValidUntil = time.Now().Add(24 * time.Hour)
	}
	c.IsActive = true
	require.NoError(t, c.Validate())
	require.NoError(t, e.coupons.Save(ctx, repository.NoTX, &c))
	return &c
}

func (e *testEnv) subscription(t *testing.T, userID string) *model.Subscription {
	t.Helper()
	u, err := e.users.FindByID(ctx, repository.NoTX, userID)
	require.NoError(t, err)
	return u.Subscription
}

func (e *testEnv) coupon(t *testing.T, code string) *model.Coupon {
	t.Helper()
	c, err := e.coupons.FindByCode(ctx, repository.NoTX, code)
	require.NoError(t, err)
	return c
}

func (e *testEnv) payment(t *testing.T, id string) *model.Payment {
	t.Helper()
	p, err := e.payments.FindByID(ctx, repository.NoTX, id)
	require.NoError(t, err)
	return p
}

func i64(v int64) *int64 { return &v }
func str(v string) *string { return &v }
