package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/usecase"
)

// ---- users ----

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in usecase.UserUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.Users.Update(r.Context(), caller(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) generateMembershipIDs(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Users.GenerateMembershipIDs(r.Context(), caller(r))
	adminAction("generate_membership_ids", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// ---- subscriptions ----

type subscribeRequest struct {
	PlanID    string     `json:"planId"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) requestSubscription(w http.ResponseWriter, r *http.Request) {
	var in subscribeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.svc.Subscriptions.Request(r.Context(), caller(r), chi.URLParam(r, "id"), in.PlanID, in.StartDate, in.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) approveSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Approve(r.Context(), caller(r), chi.URLParam(r, "id"))
	adminAction("subscription_approve", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) rejectSubscription(w http.ResponseWriter, r *http.Request) {
	var in reasonRequest
	if err := decodeOptionalJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.svc.Subscriptions.Reject(r.Context(), caller(r), chi.URLParam(r, "id"), in.Reason)
	adminAction("subscription_reject", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) terminateSubscription(w http.ResponseWriter, r *http.Request) {
	var in reasonRequest
	if err := decodeOptionalJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.svc.Subscriptions.Terminate(r.Context(), caller(r), chi.URLParam(r, "id"), in.Reason)
	adminAction("subscription_terminate", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) unterminateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Unterminate(r.Context(), caller(r), chi.URLParam(r, "id"))
	adminAction("subscription_unterminate", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) subscriptionHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Subscriptions.History(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*model.SubscriptionEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) membership(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Subscriptions.Membership(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ---- payments ----

// createPaymentRequest accepts the client's amount for compatibility; the
// charge is always priced from the plan.
type createPaymentRequest struct {
	UserID     string `json:"userId"`
	PlanID     string `json:"planId"`
	Amount     int64  `json:"amount"`
	CouponCode string `json:"couponCode"`
}

type transactionRequest struct {
	TransactionID string `json:"transactionId"`
}

type statusRequest struct {
	Status        model.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transactionId"`
}

type couponRequest struct {
	CouponCode string `json:"couponCode"`
}

type approveRequest struct {
	UserID        string  `json:"userId"`
	TransactionID *string `json:"transactionId"`
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Payments.ListAll(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePayments(w, list)
}

func (s *Server) listUserPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Payments.ListByUser(r.Context(), caller(r), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePayments(w, list)
}

func writePayments(w http.ResponseWriter, list []*model.Payment) {
	if list == nil {
		list = []*model.Payment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var in createPaymentRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c := caller(r)
	if in.UserID == "" {
		in.UserID = c.ID
	}
	p, reused, err := s.svc.Payments.CreateOrReusePending(r.Context(), c, in.UserID, in.PlanID, in.CouponCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}
	writeJSON(w, status, p)
}

func (s *Server) quotePayment(w http.ResponseWriter, r *http.Request) {
	var in createPaymentRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c := caller(r)
	if in.UserID == "" {
		in.UserID = c.ID
	}
	d, err := s.svc.Payments.Quote(r.Context(), c, in.UserID, in.PlanID, in.CouponCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Payments.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Payments.Delete(r.Context(), caller(r), chi.URLParam(r, "id"))
	adminAction("payment_delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.RecordTransactionReference(r.Context(), caller(r), chi.URLParam(r, "id"), in.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.SetStatus(r.Context(), caller(r), chi.URLParam(r, "id"), in.Status, in.TransactionID)
	adminAction("payment_status", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) replacePaymentCoupon(w http.ResponseWriter, r *http.Request) {
	var in couponRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Payments.ReplacePendingCoupon(r.Context(), caller(r), chi.URLParam(r, "id"), in.CouponCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// approveAndComplete is the server-side atomic form of "approve the
// subscription, then mark the payment completed".
func (s *Server) approveAndComplete(w http.ResponseWriter, r *http.Request) {
	var in approveRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Lifecycle.ApproveAndCompletePayment(r.Context(), caller(r), chi.URLParam(r, "id"), in.UserID, in.TransactionID)
	adminAction("approve_and_complete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
