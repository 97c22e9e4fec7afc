package adapter

import "context"

type NotificationKind string

const (
	NotifySubscriptionRequested NotificationKind = "subscription_requested"
	NotifyTransactionSubmitted  NotificationKind = "transaction_submitted"
	NotifyPaymentCompleted      NotificationKind = "payment_completed"
)

// AdminNotification is an operational event rendered by the notifier.
type AdminNotification struct {
	Kind          NotificationKind
	UserID        string
	UserName      string
	PlanName      string
	PaymentID     string
	Amount        int64 // minor units
	TransactionID string
}

// Notifier delivers operational messages to gym administrators. Delivery
// is best effort; callers log failures and carry on.
type Notifier interface {
	NotifyAdmins(ctx context.Context, n AdminNotification) error
}
