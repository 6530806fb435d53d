/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards
  5. Caller:     X-Caller-ID header into the request context

ROUTE GROUPS:
  /api/employees/*      Employee lifecycle and reads
  /api/me/*             Employee self service
  /api/treasury/*       Treasury balances and funding

SECURITY NOTE:
  The caller header is trusted as is. Deploy behind a gateway that
  authenticates the account and sets X-Caller-ID.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CallerHeader},
		AllowCredentials: true,
	}))
	r.Use(Caller)

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.RegisterEmployee)
			r.Get("/count", h.CountEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/salary", h.GetSalary)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/terminate", h.TerminateEmployee)
			r.Post("/{id}/settle", h.SettleEmployee)
		})

		r.Route("/me", func(r chi.Router) {
			r.Post("/withdraw", h.Withdraw)
			r.Post("/currency", h.SwitchCurrency)
		})

		r.Route("/treasury", func(r chi.Router) {
			r.Get("/", h.GetTreasury)
			r.Post("/deposits", h.Deposit)
		})
	})

	return r
}
