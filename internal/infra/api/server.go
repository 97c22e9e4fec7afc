package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/infra/logging"
	"gym-membership/internal/infra/metrics"
	"gym-membership/internal/usecase"
)

// Services are the use cases the HTTP layer dispatches to.
type Services struct {
	Users         usecase.UserUseCase
	Plans         usecase.PlanUseCase
	Coupons       usecase.CouponUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Lifecycle     usecase.LifecycleUseCase
	Settings      usecase.PaymentSettingsUseCase
	Stats         usecase.StatsUseCase
}

// Server maps the REST surface onto the use cases.
type Server struct {
	svc     Services
	auth    *AuthManager
	log     *zerolog.Logger
	timeout time.Duration
}

func NewServer(svc Services, auth *AuthManager, logger *zerolog.Logger, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Server{svc: svc, auth: auth, log: logging.Component(logger, "HTTP"), timeout: requestTimeout}
}

// Routes builds the chi router. Health and metrics are served outside /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// public
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Get("/plans", s.listPlans)
		r.Get("/plans/{id}", s.getPlan)
		r.Get("/coupons/active", s.listActiveCoupons)
		r.Get("/coupons/code/{code}", s.getCouponByCode)
		r.Post("/coupons/quote", s.quoteCoupon)
		r.Get("/payment-settings", s.getPaymentSettings)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)

			r.Post("/plans", s.createPlan)
			r.Put("/plans/{id}", s.updatePlan)
			r.Delete("/plans/{id}", s.deletePlan)

			r.Get("/coupons", s.listCoupons)
			r.Post("/coupons", s.createCoupon)
			r.Put("/coupons/{id}", s.updateCoupon)
			r.Delete("/coupons/{id}", s.deleteCoupon)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.listUsers)
				r.Post("/generate-membership-ids", s.generateMembershipIDs)
				r.Get("/{id}", s.getUser)
				r.Put("/{id}", s.updateUser)
				r.Post("/{id}/subscribe", s.requestSubscription)
				r.Post("/{id}/approve-subscription", s.approveSubscription)
				r.Post("/{id}/reject-subscription", s.rejectSubscription)
				r.Post("/{id}/terminate-subscription", s.terminateSubscription)
				r.Post("/{id}/unterminate-subscription", s.unterminateSubscription)
				r.Get("/{id}/subscription-history", s.subscriptionHistory)
				r.Get("/{id}/membership", s.membership)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", s.listPayments)
				r.Post("/", s.createPayment)
				r.Post("/quote", s.quotePayment)
				r.Get("/user/{userId}", s.listUserPayments)
				r.Get("/{id}", s.getPayment)
				r.Delete("/{id}", s.deletePayment)
				r.Put("/{id}/transaction", s.recordTransaction)
				r.Put("/{id}/status", s.setPaymentStatus)
				r.Put("/{id}/coupon", s.replacePaymentCoupon)
				r.Post("/{id}/approve", s.approveAndComplete)
			})

			r.Put("/payment-settings", s.updatePaymentSettings)
			r.Get("/stats", s.stats)
		})
	})
	return r
}

// caller is only called behind Authenticate.
func caller(r *http.Request) model.Caller {
	c, _ := CallerFrom(r.Context())
	return c
}

// adminAction records the outcome of an admin-only endpoint.
func adminAction(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncAdminAction(action, status)
}
