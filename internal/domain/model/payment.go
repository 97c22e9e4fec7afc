package model

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created, awaiting manual verification
	PaymentStatusCompleted PaymentStatus = "completed" // verified by an admin
	PaymentStatusFailed    PaymentStatus = "failed"    // admin marked as not received
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment records one purchase attempt. Amount is always
// OriginalAmount - DiscountAmount; the breakdown is immutable once created,
// only TransactionID, Status and PaidAt change afterwards.
type Payment struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"userId"`
	PlanID                string        `json:"planId"`
	SubscriptionRequestID *string       `json:"subscriptionRequestId,omitempty"`
	Amount                int64         `json:"amount"`
	OriginalAmount        int64         `json:"originalAmount"`
	DiscountAmount        int64         `json:"discountAmount"`
	CouponCode            string        `json:"couponCode"`
	TransactionID         string        `json:"transactionId"`
	Status                PaymentStatus `json:"status"`
	PaidAt                *time.Time    `json:"paidAt,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

// netAmount derives the payable amount from the breakdown.
func netAmount(original, discount int64) int64 {
	if n := original - discount; n > 0 {
		return n
	}
	return 0
}

// UnmarshalJSON recomputes Amount from the breakdown so a decoded payment can
// never carry an amount that disagrees with originalAmount - discountAmount.
func (p *Payment) UnmarshalJSON(b []byte) error {
	type alias Payment
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = Payment(a)
	if p.OriginalAmount > 0 || p.DiscountAmount > 0 {
		p.Amount = netAmount(p.OriginalAmount, p.DiscountAmount)
	}
	return nil
}

// PaymentDraft is an in-memory checkout computation. It is recomputed freely
// (e.g. while the member tries different coupons) and persisted exactly once
// through NewPayment.
type PaymentDraft struct {
	UserID                string      `json:"userId"`
	PlanID                string      `json:"planId"`
	SubscriptionRequestID *string     `json:"subscriptionRequestId,omitempty"`
	Quote                 CouponQuote `json:"quote"`
}

func NewPaymentDraft(userID, planID string, base int64) *PaymentDraft {
	return &PaymentDraft{UserID: userID, PlanID: planID, Quote: NoDiscount(base)}
}

// WithCoupon recomputes the totals for c (nil clears the discount).
func (d *PaymentDraft) WithCoupon(c *Coupon, now time.Time) *PaymentDraft {
	cp := *d
	if c == nil {
		cp.Quote = NoDiscount(d.Quote.BaseAmount)
		return &cp
	}
	cp.Quote = c.Quote(d.Quote.BaseAmount, now)
	return &cp
}

// NewPayment materializes the draft as a pending payment.
func (d *PaymentDraft) NewPayment(id string, now time.Time) *Payment {
	return &Payment{
		ID:                    id,
		UserID:                d.UserID,
		PlanID:                d.PlanID,
		SubscriptionRequestID: d.SubscriptionRequestID,
		Amount:                netAmount(d.Quote.BaseAmount, d.Quote.DiscountAmount),
		OriginalAmount:        d.Quote.BaseAmount,
		DiscountAmount:        d.Quote.DiscountAmount,
		CouponCode:            d.Quote.AppliedCode,
		Status:                PaymentStatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// PaymentSettings holds the manual payment instructions shown to members.
type PaymentSettings struct {
	UpiID         string    `json:"upiId"`
	BankName      string    `json:"bankName"`
	AccountNumber string    `json:"accountNumber"`
	IfscCode      string    `json:"ifscCode"`
	IsActive      bool      `json:"isActive"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
