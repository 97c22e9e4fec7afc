package model

import (
	"fmt"
	"strings"
	"time"

	"gym-membership/internal/domain"
)

type SubscriptionStatus string

// approved is the normal paid-and-live state; active is only reached by
// restoring a terminated subscription. Both grant access.
const (
	SubscriptionStatusPending    SubscriptionStatus = "pending"
	SubscriptionStatusApproved   SubscriptionStatus = "approved"
	SubscriptionStatusRejected   SubscriptionStatus = "rejected"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTerminated SubscriptionStatus = "terminated"
)

const DefaultTerminationReason = "Admin termination"

type SubscriptionAction string

const (
	ActionRequest     SubscriptionAction = "request"
	ActionApprove     SubscriptionAction = "approve"
	ActionReject      SubscriptionAction = "reject"
	ActionTerminate   SubscriptionAction = "terminate"
	ActionUnterminate SubscriptionAction = "unterminate"
	ActionActivate    SubscriptionAction = "activate" // payment completion side effect
)

type transition struct {
	from   SubscriptionStatus
	action SubscriptionAction
}

// validTransitions lists every legal (state, action) pair. Requests overwrite
// the whole record and are checked separately by the caller.
var validTransitions = map[transition]SubscriptionStatus{
	{SubscriptionStatusPending, ActionApprove}:        SubscriptionStatusApproved,
	{SubscriptionStatusPending, ActionReject}:         SubscriptionStatusRejected,
	{SubscriptionStatusApproved, ActionTerminate}:     SubscriptionStatusTerminated,
	{SubscriptionStatusActive, ActionTerminate}:       SubscriptionStatusTerminated,
	{SubscriptionStatusTerminated, ActionUnterminate}: SubscriptionStatusActive,
}

// CanTransition reports whether action is permitted from status.
func CanTransition(from SubscriptionStatus, action SubscriptionAction) bool {
	_, ok := validTransitions[transition{from, action}]
	return ok
}

// Subscription is the single live enrollment embedded on a user.
type Subscription struct {
	PlanID            string             `json:"planId"`
	RequestID         string             `json:"requestId"`
	StartDate         time.Time          `json:"startDate"`
	EndDate           time.Time          `json:"endDate"`
	IsActive          bool               `json:"isActive"`
	Status            SubscriptionStatus `json:"status"`
	TerminatedAt      *time.Time         `json:"terminatedAt,omitempty"`
	TerminationReason string             `json:"terminationReason,omitempty"`
	RejectionReason   string             `json:"rejectionReason,omitempty"`
	RequestedAt       time.Time          `json:"requestedAt"`
}

// NewPendingSubscription builds a fresh request. A zero start means now and a
// zero end means start plus the plan duration.
func NewPendingSubscription(requestID string, plan *Plan, start, end, now time.Time) (*Subscription, error) {
	if plan.IsZero() {
		return nil, fmt.Errorf("%w: plan is required", domain.ErrValidation)
	}
	if start.IsZero() {
		start = now
	}
	if end.IsZero() {
		end = plan.EndDate(start)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", domain.ErrValidation)
	}
	return &Subscription{
		PlanID:      plan.ID,
		RequestID:   requestID,
		StartDate:   start,
		EndDate:     end,
		IsActive:    false,
		Status:      SubscriptionStatusPending,
		RequestedAt: now,
	}, nil
}

// IsValidAt is the one authoritative membership check. IsActive alone can be
// stale because expiry is never applied automatically.
func (s *Subscription) IsValidAt(now time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	if s.Status != SubscriptionStatusApproved && s.Status != SubscriptionStatusActive {
		return false
	}
	return s.EndDate.After(now)
}

// Expired reports the derived expired-but-not-terminated condition.
func (s *Subscription) Expired(now time.Time) bool {
	return s != nil && s.IsActive && !s.EndDate.After(now)
}

func (s *Subscription) apply(action SubscriptionAction) error {
	to, ok := validTransitions[transition{s.Status, action}]
	if !ok {
		return fmt.Errorf("%w: cannot %s a %s subscription", domain.ErrInvalidState, action, s.Status)
	}
	s.Status = to
	return nil
}

// Approve moves a pending request to approved and grants access. Dates are
// left exactly as requested.
func (s *Subscription) Approve() error {
	if s.Status != SubscriptionStatusPending {
		return fmt.Errorf("%w: subscription is not pending approval", domain.ErrInvalidState)
	}
	if err := s.apply(ActionApprove); err != nil {
		return err
	}
	s.IsActive = true
	return nil
}

// Reject declines a pending request. The state is checked before the reason.
func (s *Subscription) Reject(reason string) error {
	if s.Status != SubscriptionStatusPending {
		return fmt.Errorf("%w: subscription is not pending approval", domain.ErrInvalidState)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	if err := s.apply(ActionReject); err != nil {
		return err
	}
	s.IsActive = false
	s.RejectionReason = reason
	return nil
}

// Terminate revokes access on a subscription that currently grants it.
func (s *Subscription) Terminate(reason string, now time.Time) error {
	if !s.IsActive {
		return fmt.Errorf("%w: subscription is not active", domain.ErrInvalidState)
	}
	if err := s.apply(ActionTerminate); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultTerminationReason
	}
	t := now
	s.IsActive = false
	s.TerminatedAt = &t
	s.TerminationReason = reason
	return nil
}

// Unterminate restores a terminated subscription whose end date has not passed.
func (s *Subscription) Unterminate(now time.Time) error {
	if s.IsActive || s.TerminatedAt == nil {
		return fmt.Errorf("%w: subscription was not terminated", domain.ErrInvalidState)
	}
	if s.EndDate.Before(now) {
		return fmt.Errorf("%w: subscription has expired, extend it before reactivating", domain.ErrInvalidState)
	}
	if err := s.apply(ActionUnterminate); err != nil {
		return err
	}
	s.IsActive = true
	s.TerminatedAt = nil
	s.TerminationReason = ""
	return nil
}

// Activated is the payment-completion side effect. It returns a fresh
// approved subscription for plan starting now, or nil when cur already
// grants access through approval or reactivation.
func Activated(cur *Subscription, plan *Plan, requestID string, now time.Time) *Subscription {
	if cur != nil && (cur.Status == SubscriptionStatusApproved || cur.Status == SubscriptionStatusActive) {
		return nil
	}
	requestedAt := now
	if cur != nil && cur.PlanID == plan.ID && !cur.RequestedAt.IsZero() {
		requestedAt = cur.RequestedAt
	}
	return &Subscription{
		PlanID:      plan.ID,
		RequestID:   requestID,
		StartDate:   now,
		EndDate:     plan.EndDate(now),
		IsActive:    true,
		Status:      SubscriptionStatusApproved,
		RequestedAt: requestedAt,
	}
}
