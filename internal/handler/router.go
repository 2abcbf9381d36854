package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/fahrudina/smart-laundry-pos-sub002/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware кассы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/staff/register", h.Register)
		r.Post("/staff/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/services", h.CreateService)
			r.Get("/services", h.ListServices)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/quote", h.QuoteOrder)
				r.Post("/", h.CreateOrder)
				r.Get("/", h.ListOrders)
				r.Get("/unpaid", h.ListUnpaidOrders)
				r.Get("/ready", h.ListReadyOrders)
				r.Get("/daily", h.ListDailyOrders)
				r.Get("/{id}", h.GetOrder)
				r.Patch("/{id}/status", h.UpdateStatus)
				r.Post("/{id}/payment", h.Pay)
				r.Post("/{id}/remind", h.Remind)
			})

			r.Get("/customers/{phone}/points", h.GetPoints)
			r.Get("/customers/{phone}/points/transactions", h.GetPointsTransactions)

			r.Get("/reports/daily", h.DailyReport)
			r.Get("/reports/revenue", h.RevenueReport)
			r.Get("/reports/services", h.PopularServices)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
