package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/usecase"
)

// ---- auth ----

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in usecase.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---- plans ----

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*model.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var in model.Plan
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Plans.Create(r.Context(), caller(r), &in)
	adminAction("plan_create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var in model.Plan
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Plans.Update(r.Context(), caller(r), chi.URLParam(r, "id"), &in)
	adminAction("plan_update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Plans.Delete(r.Context(), caller(r), chi.URLParam(r, "id"))
	adminAction("plan_delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- coupons ----

type couponQuoteRequest struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

func (s *Server) listActiveCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Coupons.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Coupon{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getCouponByCode(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Coupons.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) quoteCoupon(w http.ResponseWriter, r *http.Request) {
	var in couponQuoteRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.svc.Coupons.Quote(r.Context(), in.Code, in.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) listCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Coupons.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Coupon{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCoupon(w http.ResponseWriter, r *http.Request) {
	var in model.Coupon
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Coupons.Create(r.Context(), caller(r), &in)
	adminAction("coupon_create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var in model.Coupon
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Coupons.Update(r.Context(), caller(r), chi.URLParam(r, "id"), &in)
	adminAction("coupon_update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Coupons.Delete(r.Context(), caller(r), chi.URLParam(r, "id"))
	adminAction("coupon_delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- payment settings & stats ----

func (s *Server) getPaymentSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := s.svc.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) updatePaymentSettings(w http.ResponseWriter, r *http.Request) {
	var in model.PaymentSettings
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.svc.Settings.Update(r.Context(), caller(r), &in)
	adminAction("payment_settings_update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats.Summary(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
