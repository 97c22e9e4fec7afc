package model

import "time"

// SubscriptionEvent is one append-only history entry. Events survive the
// wholesale overwrite of the embedded subscription on re-request, so
// rejection and termination reasons stay auditable.
type SubscriptionEvent struct {
	ID         string             `json:"id"` // ULID, sorts by creation time
	RequestID  string             `json:"requestId"`
	UserID     string             `json:"userId"`
	PlanID     string             `json:"planId"`
	Action     SubscriptionAction `json:"action"`
	FromStatus SubscriptionStatus `json:"fromStatus,omitempty"`
	ToStatus   SubscriptionStatus `json:"toStatus"`
	Reason     string             `json:"reason,omitempty"`
	ActorID    string             `json:"actorId"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// NewSubscriptionEvent records a transition from prev (nil for a first request) to cur.
func NewSubscriptionEvent(id, userID, actorID string, action SubscriptionAction, prev, cur *Subscription, reason string, now time.Time) *SubscriptionEvent {
	ev := &SubscriptionEvent{
		ID:        id,
		UserID:    userID,
		Action:    action,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: now,
	}
	if prev != nil {
		ev.FromStatus = prev.Status
	}
	if cur != nil {
		ev.RequestID = cur.RequestID
		ev.PlanID = cur.PlanID
		ev.ToStatus = cur.Status
	}
	return ev
}
