package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/shuttle-booking/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if h.trustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.NewCORSHandler(h.allowedOrigins))
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/routes", h.ListRoutes)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.MaxBodySize(maxJSONBody))

			r.Post("/bookings", h.CreateBooking)
			r.Post("/bookings/{id}/payment", h.ConfirmBookingPayment)
			r.Post("/payments/intents", h.CreatePaymentIntent)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", h.Register)
				r.Post("/login-verify", h.LoginVerify)
				r.Get("/check-user", h.CheckUser)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Use(custommiddleware.MaxBodySize(maxJSONBody))
				r.Post("/", h.AdminLogin)
				r.Put("/", h.AdminSetup)
				r.Delete("/", h.AdminLogout)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Route("/routes", func(r chi.Router) {
					r.Get("/", h.ListRoutes)
					r.Post("/", h.CreateRoute)
					r.Post("/import", h.ImportRoutes)
					r.Post("/update", h.UpdateRoutesCSV)
					r.Get("/export", h.ExportRoutes)
					r.Put("/{id}", h.UpdateRoute)
					r.Delete("/{id}", h.DeleteRoute)
				})

				r.Route("/companies", func(r chi.Router) {
					r.Get("/", h.ListCompanies)
					r.Post("/", h.CreateCompany)
					r.Put("/{id}", h.UpdateCompany)
					r.Delete("/{id}", h.DeleteCompany)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.ListUsers)
					r.Put("/{id}", h.UpdateUser)
					r.Delete("/{id}", h.DeleteUser)
				})

				r.Route("/bookings", func(r chi.Router) {
					r.Get("/", h.ListBookings)
					r.Put("/{id}", h.UpdateBooking)
					r.Delete("/{id}", h.DeleteBooking)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
