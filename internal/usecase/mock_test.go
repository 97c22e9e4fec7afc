//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// =============================
// In-memory store shared by all repositories
// =============================

type memStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	plans    map[string]model.Plan
	coupons  map[string]model.Coupon
	payments map[string]model.Payment
	events   []model.SubscriptionEvent
	settings *model.PaymentSettings
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]model.User{},
		plans:    map[string]model.Plan{},
		coupons:  map[string]model.Coupon{},
		payments: map[string]model.Payment{},
	}
}

// snapshot deep-copies the store so MockTxManager can roll back.
func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := newMemStore()
	for k, v := range s.users {
		if v.Subscription != nil {
			sub := *v.Subscription
			v.Subscription = &sub
		}
		cp.users[k] = v
	}
	for k, v := range s.plans {
		cp.plans[k] = v
	}
	for k, v := range s.coupons {
		cp.coupons[k] = v
	}
	for k, v := range s.payments {
		cp.payments[k] = v
	}
	cp.events = append(cp.events, s.events...)
	if s.settings != nil {
		st := *s.settings
		cp.settings = &st
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.plans, s.coupons, s.payments = from.users, from.plans, from.coupons, from.payments
	s.events, s.settings = from.events, from.settings
}

// ---- TransactionManager ----

type MockTxManager struct {
	store *memStore
	txMu  sync.Mutex
	Calls int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.Calls++
	snap := m.store.snapshot()
	if err := fn(ctx, "mock-tx"); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ---- UserLocker ----

type MockUserLocker struct {
	mu     sync.Mutex
	Locked []string
}

func (m *MockUserLocker) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locked = append(m.Locked, userID)
	return nil
}

// =============================
// Repositories
// =============================

type MockUserRepo struct{ s *memStore }

var _ repository.UserRepository = (*MockUserRepo)(nil)

func cloneUser(u model.User) *model.User {
	if u.Subscription != nil {
		sub := *u.Subscription
		u.Subscription = &sub
	}
	return &u
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, other := range r.s.users {
		if id != u.ID && other.Email == u.Email {
			return domain.ErrConflict
		}
	}
	cp := cloneUser(*u)
	if cur, ok := r.s.users[u.ID]; ok {
		cp.Subscription = cur.Subscription
	}
	r.s.users[u.ID] = *cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) List(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockUserRepo) SaveSubscription(ctx context.Context, tx repository.Tx, userID string, s *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if s == nil {
		u.Subscription = nil
	} else {
		cp := *s
		u.Subscription = &cp
	}
	r.s.users[userID] = u
	return nil
}

func (r *MockUserRepo) SetMembershipID(ctx context.Context, tx repository.Tx, userID, membershipID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.MembershipID = &membershipID
	r.s.users[userID] = u
	return nil
}

func (r *MockUserRepo) MembershipIDExists(ctx context.Context, tx repository.Tx, membershipID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.MembershipID != nil && *u.MembershipID == membershipID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockUserRepo) ListWithoutMembershipID(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	all, _ := r.List(ctx, tx)
	out := all[:0]
	for _, u := range all {
		if u.MembershipID == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

func (r *MockUserRepo) CountBySubscriptionStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, u := range r.s.users {
		if u.Subscription != nil {
			out[u.Subscription.Status]++
		}
	}
	return out, nil
}

// ---- Plans ----

type MockPlanRepo struct{ s *memStore }

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.plans[p.ID] = *p
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.s.plans {
		if p.IsActive {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (r *MockPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsActive = false
	r.s.plans[id] = p
	return nil
}

// ---- Coupons ----

type MockCouponRepo struct{ s *memStore }

var _ repository.CouponRepository = (*MockCouponRepo)(nil)

func (r *MockCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, other := range r.s.coupons {
		if id != c.ID && other.Code == c.Code {
			return domain.ErrConflict
		}
	}
	r.s.coupons[c.ID] = *c
	return nil
}

func (r *MockCouponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *MockCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.coupons {
		if c.Code == code {
			cp := c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockCouponRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Coupon
	for _, c := range r.s.coupons {
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MockCouponRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *MockCouponRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[id]
	if !ok || !c.IsActive || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
		return false, nil
	}
	c.UsedCount++
	r.s.coupons[id] = c
	return true, nil
}

func (r *MockCouponRepo) ReleaseUsage(ctx context.Context, tx repository.Tx, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.coupons {
		if c.Code == code && c.UsedCount > 0 {
			c.UsedCount--
			r.s.coupons[id] = c
		}
	}
	return nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	s         *memStore
	InsertErr error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (r *MockPaymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.Status == model.PaymentStatusPending {
		for _, o := range r.s.payments {
			if o.UserID == p.UserID && o.PlanID == p.PlanID && o.Status == model.PaymentStatusPending {
				return domain.ErrConflict
			}
		}
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MockPaymentRepo) FindPendingByUserPlan(ctx context.Context, tx repository.Tx, userID, planID string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.UserID == userID && p.PlanID == planID && p.Status == model.PaymentStatusPending {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) list(keep func(model.Payment) bool) []*model.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if keep(p) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	return r.list(func(p model.Payment) bool { return p.UserID == userID }), nil
}

func (r *MockPaymentRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Payment, error) {
	return r.list(func(model.Payment) bool { return true }), nil
}

func (r *MockPaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.payments, id)
	return nil
}

func (r *MockPaymentRepo) SetTransactionID(ctx context.Context, tx repository.Tx, id, transactionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.TransactionID = transactionID
	r.s.payments[id] = p
	return nil
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if status == model.PaymentStatusPending {
		for oid, o := range r.s.payments {
			if oid != id && o.UserID == p.UserID && o.PlanID == p.PlanID && o.Status == model.PaymentStatusPending {
				return domain.ErrConflict
			}
		}
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	r.s.payments[id] = p
	return nil
}

func (r *MockPaymentRepo) ReconcilePending(ctx context.Context, tx repository.Tx, userID, planID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var newest *model.Payment
	for _, p := range r.s.payments {
		if p.UserID != userID || p.PlanID != planID {
			continue
		}
		if p.Status == model.PaymentStatusPending {
			return 0, nil
		}
		if p.Status == model.PaymentStatusFailed && (newest == nil || p.CreatedAt.After(newest.CreatedAt)) {
			cp := p
			newest = &cp
		}
	}
	if newest == nil {
		return 0, nil
	}
	newest.Status = model.PaymentStatusPending
	r.s.payments[newest.ID] = *newest
	return 1, nil
}

func (r *MockPaymentRepo) SumCompleted(ctx context.Context, tx repository.Tx) (int64, error) {
	var sum int64
	for _, p := range r.list(func(p model.Payment) bool { return p.Status == model.PaymentStatusCompleted }) {
		sum += p.Amount
	}
	return sum, nil
}

func (r *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	out := map[model.PaymentStatus]int{}
	for _, p := range r.list(func(model.Payment) bool { return true }) {
		out[p.Status]++
	}
	return out, nil
}

// ---- Subscription events & payment settings ----

type MockEventRepo struct{ s *memStore }

var _ repository.SubscriptionEventRepository = (*MockEventRepo)(nil)

func (r *MockEventRepo) Append(ctx context.Context, tx repository.Tx, ev *model.SubscriptionEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, *ev)
	return nil
}

func (r *MockEventRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.SubscriptionEvent
	for _, ev := range r.s.events {
		if ev.UserID == userID {
			cp := ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MockSettingsRepo struct{ s *memStore }

var _ repository.PaymentSettingsRepository = (*MockSettingsRepo)(nil)

func (r *MockSettingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.PaymentSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.s.settings
	return &cp, nil
}

func (r *MockSettingsRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.PaymentSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *s
	r.s.settings = &cp
	return nil
}

// =============================
// Adapters
// =============================

type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.AdminNotification
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyAdmins(ctx context.Context, n adapter.AdminNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return nil
}

func (m *MockNotifier) Kinds() []adapter.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.NotificationKind, len(m.Sent))
	for i, n := range m.Sent {
		out[i] = n.Kind
	}
	return out
}

// MockRateLimiter allows the first Limit hits per key, ignoring the window.
type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

// MockLocker is an in-memory adapter.Locker.
type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	Busy  bool
	Calls int
}

var _ adapter.Locker = (*MockLocker)(nil)

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.held == nil {
		m.held = map[string]string{}
	}
	if _, ok := m.held[key]; ok || m.Busy {
		return "", domain.ErrLockBusy
	}
	m.held[key] = "token"
	return "token", nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

type MockTokens struct{}

func (MockTokens) Mint(userID string, role model.Role) (string, error) {
	return "token-" + userID + "-" + string(role), nil
}
