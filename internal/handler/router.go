package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/investplatform/internal/metrics"
	custommiddleware "github.com/mmeshcher/investplatform/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware платформы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if h.trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.rateLimiter != nil {
				r.Use(h.rateLimiter.Handler)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})
		r.Post("/logout", h.Logout)

		r.Get("/products", h.Products)
		r.Get("/banks", h.Banks)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/account", h.Account)
			r.Put("/password", h.ChangePassword)
			r.Get("/profile", h.Profile)
			r.Put("/profile", h.UpdateProfile)
			r.Get("/team", h.Team)

			r.Post("/products/{id}/activate", h.ActivateProduct)
			r.Get("/tasks", h.Tasks)
			r.Get("/income", h.Income)

			r.Get("/deposits", h.Deposits)
			r.Post("/deposits", h.CreateDeposit)

			r.Get("/bank-accounts", h.BankAccounts)
			r.Post("/bank-accounts", h.AddBankAccount)
			r.Get("/withdrawals", h.Withdrawals)
			r.Post("/withdrawals", h.CreateWithdrawal)
			r.Get("/transactions", h.Transactions)

			r.Get("/wheel", h.Wheel)
			r.Post("/wheel/spin", h.Spin)
			r.Get("/wheel/spins", h.Spins)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(custommiddleware.AdminAuth(h.adminToken))

		r.Get("/deposits/pending", h.PendingDeposits)
		r.Post("/deposits/{id}/approve", h.ApproveDeposit)
		r.Post("/deposits/{id}/reject", h.RejectDeposit)

		r.Get("/withdrawals/pending", h.PendingWithdrawals)
		r.Post("/withdrawals/{id}/approve", h.ApproveWithdrawal)
		r.Post("/withdrawals/{id}/reject", h.RejectWithdrawal)

		r.Post("/products", h.CreateProduct)
		r.Post("/banks", h.CreateBank)
		r.Get("/prizes", h.Prizes)
		r.Post("/prizes", h.CreatePrize)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
