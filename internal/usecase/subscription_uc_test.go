//go:build !integration

package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/domain/ports/repository"
)

func TestRequest_CreatesPendingSubscription(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	plan := e.addPlan(t, "p1", 1000, 3)

	s, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPending, s.Status)
	assert.False(t, s.IsActive)
	assert.NotEmpty(t, s.RequestID)
	assert.Equal(t, plan.EndDate(s.StartDate), s.EndDate)

	assert.Equal(t, s.RequestID, e.subscription(t, "u1").RequestID)
	assert.Equal(t, []adapter.NotificationKind{adapter.NotifySubscriptionRequested}, e.notifier.Kinds())

	hist, err := e.subUC.History(ctx, memberCaller("u1"), "u1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.ActionRequest, hist[0].Action)
	assert.Equal(t, model.SubscriptionStatusPending, hist[0].ToStatus)
}

func TestRequest_ExplicitDates(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	start := time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 2, 0)

	s, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", &start, &end)
	require.NoError(t, err)
	assert.True(t, s.StartDate.Equal(start))
	assert.True(t, s.EndDate.Equal(end))

	bad := start.Add(-time.Hour)
	_, err = e.subUC.Request(ctx, adminCaller, "u1", "p1", &start, &bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRequest_MemberCannotStackRequests(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	e.addPlan(t, "p2", 2000, 2)

	_, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)
	_, err = e.subUC.Request(ctx, memberCaller("u1"), "u1", "p2", nil, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// admins may overwrite
	s, err := e.subUC.Request(ctx, adminCaller, "u1", "p2", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "p2", s.PlanID)
}

func TestRequest_Guards(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)

	_, err := e.subUC.Request(ctx, memberCaller("u2"), "u1", "p1", nil, nil)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	_, err = e.subUC.Request(ctx, memberCaller("u1"), "u1", "", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = e.subUC.Request(ctx, memberCaller("u1"), "u1", "nope", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.subUC.Request(ctx, adminCaller, "ghost", "p1", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprove_KeepsRequestedDates(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	req, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)

	_, err = e.subUC.Approve(ctx, memberCaller("u1"), "u1")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	s, err := e.subUC.Approve(ctx, adminCaller, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusApproved, s.Status)
	assert.True(t, s.IsActive)
	assert.Equal(t, req.StartDate, s.StartDate)
	assert.Equal(t, req.EndDate, s.EndDate)

	_, err = e.subUC.Approve(ctx, adminCaller, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestApprove_ReconcilesFailedPayment(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	_, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)
	pay, _, err := e.paymentUC.CreateOrReusePending(ctx, memberCaller("u1"), "u1", "p1", "")
	require.NoError(t, err)
	_, err = e.paymentUC.SetStatus(ctx, adminCaller, pay.ID, model.PaymentStatusFailed, nil)
	require.NoError(t, err)

	_, err = e.subUC.Approve(ctx, adminCaller, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, e.payment(t, pay.ID).Status)
}

func TestApprove_WithoutSubscription(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	_, err := e.subUC.Approve(ctx, adminCaller, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReject(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	_, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)

	_, err = e.subUC.Reject(ctx, adminCaller, "u1", "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, model.SubscriptionStatusPending, e.subscription(t, "u1").Status)

	s, err := e.subUC.Reject(ctx, adminCaller, "u1", "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusRejected, s.Status)
	assert.False(t, s.IsActive)
	assert.Equal(t, "incomplete documents", s.RejectionReason)

	// a rejected member may request again
	_, err = e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	assert.NoError(t, err)
}

func TestTerminateAndUnterminate(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	_, err := e.subUC.Request(ctx, memberCaller("u1"), "u1", "p1", nil, nil)
	require.NoError(t, err)

	_, err = e.subUC.Terminate(ctx, adminCaller, "u1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "pending subscriptions cannot be terminated")

	_, err = e.subUC.Approve(ctx, adminCaller, "u1")
	require.NoError(t, err)

	s, err := e.subUC.Terminate(ctx, adminCaller, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusTerminated, s.Status)
	assert.False(t, s.IsActive)
	assert.Equal(t, model.DefaultTerminationReason, s.TerminationReason)
	require.NotNil(t, s.TerminatedAt)

	_, err = e.subUC.Terminate(ctx, adminCaller, "u1", "again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	s, err = e.subUC.Unterminate(ctx, adminCaller, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusActive, s.Status)
	assert.True(t, s.IsActive)
	assert.Nil(t, s.TerminatedAt)
	assert.Empty(t, s.TerminationReason)

	m, err := e.subUC.Membership(ctx, memberCaller("u1"), "u1")
	require.NoError(t, err)
	assert.True(t, m.Valid)
	assert.False(t, m.Expired)
	require.NotNil(t, m.Plan)
	assert.Equal(t, "p1", m.Plan.ID)

	hist, err := e.subUC.History(ctx, adminCaller, "u1")
	require.NoError(t, err)
	actions := make([]model.SubscriptionAction, 0, len(hist))
	for _, ev := range hist {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []model.SubscriptionAction{
		model.ActionRequest, model.ActionApprove, model.ActionTerminate, model.ActionUnterminate,
	}, actions)
}

func TestUnterminate_RefusedAfterExpiry(t *testing.T) {
	e := newTestEnv(t)
	e.addUser(t, "u1")
	e.addPlan(t, "p1", 1000, 1)
	start := time.Now().AddDate(0, -2, 0)
	end := time.Now().AddDate(0, 0, -1)
	_, err := e.subUC.Request(ctx, adminCaller, "u1", "p1", &start, &end)
	require.NoError(t, err)
	_, err = e.subUC.Approve(ctx, adminCaller, "u1")
	require.NoError(t, err)

	m, err := e.subUC.Membership(ctx, adminCaller, "u1")
	require.NoError(t, err)
	assert.False(t, m.Valid)
	assert.True(t, m.Expired)

	_, err = e.subUC.Terminate(ctx, adminCaller, "u1", "moved away")
	require.NoError(t, err)
	_, err = e.subUC.Unterminate(ctx, adminCaller, "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, model.SubscriptionStatusTerminated, e.subscription(t, "u1").Status)
}

func TestMembership_NoSubscription(t *testing.T) {
	e := newTestEnv(t)
	u := e.addUser(t, "u1")
	mid := "ABCD1234"
	require.NoError(t, e.users.SetMembershipID(ctx, repository.NoTX, u.ID, mid))

	m, err := e.subUC.Membership(ctx, memberCaller("u1"), "u1")
	require.NoError(t, err)
	assert.False(t, m.Valid)
	assert.False(t, m.Expired)
	assert.Nil(t, m.Subscription)
	require.NotNil(t, m.MembershipID)
	assert.Equal(t, mid, *m.MembershipID)

	_, err = e.subUC.Membership(ctx, memberCaller("u2"), "u1")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}
