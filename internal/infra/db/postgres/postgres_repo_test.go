//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
)

func seedPlan(t *testing.T, id string, price int64) *model.Plan {
	t.Helper()
	p, err := model.NewPlan(id, "Plan "+id, "desc", price, 1, []string{"gym floor"})
	require.NoError(t, err)
	require.NoError(t, NewPostgresPlanRepo(testPool).Save(context.Background(), repository.NoTX, p))
	return p
}

func seedUser(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := model.NewUser("", "Member", email, "hash", model.RoleUser)
	require.NoError(t, err)
	require.NoError(t, NewUserRepo(testPool).Save(context.Background(), repository.NoTX, u))
	return u
}

func TestUserRepo_SubscriptionRoundTrip(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewUserRepo(testPool)

	plan := seedPlan(t, "monthly", 1000)
	u := seedUser(t, "a@gym.test")

	got, err := repo.FindByEmail(ctx, repository.NoTX, "a@gym.test")
	require.NoError(t, err)
	assert.Nil(t, got.Subscription)

	now := time.Now().UTC().Truncate(time.Millisecond)
	sub, err := model.NewPendingSubscription("req-1", plan, now, time.Time{}, now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveSubscription(ctx, repository.NoTX, u.ID, sub))

	got, err = repo.FindByID(ctx, repository.NoTX, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Subscription)
	assert.Equal(t, model.SubscriptionStatusPending, got.Subscription.Status)
	assert.Equal(t, "req-1", got.Subscription.RequestID)
	assert.True(t, got.Subscription.EndDate.Equal(plan.EndDate(now)))

	// profile saves never clobber the subscription
	got.Phone = "555"
	require.NoError(t, repo.Save(ctx, repository.NoTX, got))
	got, err = repo.FindByID(ctx, repository.NoTX, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "555", got.Phone)
	require.NotNil(t, got.Subscription)

	counts, err := repo.CountBySubscriptionStatus(ctx, repository.NoTX)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.SubscriptionStatusPending])

	require.NoError(t, repo.SaveSubscription(ctx, repository.NoTX, u.ID, nil))
	got, err = repo.FindByID(ctx, repository.NoTX, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Subscription)

	err = repo.SaveSubscription(ctx, repository.NoTX, "missing", sub)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	cleanup(t)
	seedUser(t, "dup@gym.test")

	u, err := model.NewUser("", "Other", "dup@gym.test", "hash", model.RoleUser)
	require.NoError(t, err)
	err = NewUserRepo(testPool).Save(context.Background(), repository.NoTX, u)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCouponRepo_IncrementUsageRespectsLimit(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewCouponRepo(testPool)

	limit := int64(3)
	c := &model.Coupon{
		ID:            uuid.NewString(),
		Code:          "save10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		UsageLimit:    &limit,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, c.Validate())
	require.NoError(t, repo.Save(ctx, repository.NoTX, c))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementUsage(ctx, repository.NoTX, c.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, won)

	got, err := repo.FindByCode(ctx, repository.NoTX, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.UsedCount)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.ReleaseUsage(ctx, repository.NoTX, "SAVE10"))
	}
	got, err = repo.FindByCode(ctx, repository.NoTX, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UsedCount, "release never goes negative")
}

func TestPaymentRepo_OnePendingPerCycle(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPaymentRepo(testPool)
	plan := seedPlan(t, "monthly", 1000)
	u := seedUser(t, "p@gym.test")

	now := time.Now()
	first := model.NewPaymentDraft(u.ID, plan.ID, plan.Price).NewPayment(uuid.NewString(), now)
	first.DiscountAmount = 150
	require.NoError(t, repo.Insert(ctx, repository.NoTX, first))

	got, err := repo.FindByID(ctx, repository.NoTX, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(850), got.Amount, "amount is derived by the database")

	second := model.NewPaymentDraft(u.ID, plan.ID, plan.Price).NewPayment(uuid.NewString(), now.Add(time.Second))
	err = repo.Insert(ctx, repository.NoTX, second)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, repo.UpdateStatus(ctx, repository.NoTX, first.ID, model.PaymentStatusFailed, nil))
	require.NoError(t, repo.Insert(ctx, repository.NoTX, second))

	// a pending payment already exists, so nothing is reopened
	n, err := repo.ReconcilePending(ctx, repository.NoTX, u.ID, plan.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Delete(ctx, repository.NoTX, second.ID))
	n, err = repo.ReconcilePending(ctx, repository.NoTX, u.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err := repo.FindPendingByUserPlan(ctx, repository.NoTX, u.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, pending.ID)

	paidAt := time.Now()
	require.NoError(t, repo.UpdateStatus(ctx, repository.NoTX, first.ID, model.PaymentStatusCompleted, &paidAt))
	sum, err := repo.SumCompleted(ctx, repository.NoTX)
	require.NoError(t, err)
	assert.Equal(t, int64(850), sum)
}

func TestTxManager_RollbackAndAdvisoryLock(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	txm := NewTxManager(testPool)
	locker := NewAdvisoryLocker()
	plans := NewPostgresPlanRepo(testPool)

	err := txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, locker.LockUser(ctx, tx, "u1"))
		p, _ := model.NewPlan("rolled-back", "Gone", "desc", 500, 1, nil)
		require.NoError(t, plans.Save(ctx, tx, p))
		return domain.ErrValidation
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = plans.FindByID(ctx, repository.NoTX, "rolled-back")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, locker.LockUser(ctx, repository.NoTX, "u1"), domain.ErrInvalidExecContext)
}

func TestPaymentSettingsRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPaymentSettingsRepo(testPool)

	_, err := repo.Get(ctx, repository.NoTX)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, repository.NoTX, &model.PaymentSettings{UpiID: "gym@upi", IsActive: true, UpdatedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, repository.NoTX, &model.PaymentSettings{UpiID: "new@upi", IsActive: true, UpdatedAt: time.Now()}))

	got, err := repo.Get(ctx, repository.NoTX)
	require.NoError(t, err)
	assert.Equal(t, "new@upi", got.UpiID)
}
