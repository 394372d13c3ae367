package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the page routes around the application's dependencies.
func NewRouter(deps AppDependencies) http.Handler {
	r := chi.NewRouter()

	h := &HTTPEndpoint{
		app: deps,
	}

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(deps.RequestLoggerMiddleware)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/healthz", h.healthHandler)
	r.Get("/error", h.errorHandler)

	// --- Authentication Routes ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/register", h.registrationHandler)
		r.Get("/login", h.loginHandler)
		r.Post("/logout", h.logoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimitMiddleware)
			r.Post("/register", h.registrationSubmitHandler)
			r.Post("/login", h.loginSubmitHandler)
		})
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(deps.GuardMiddleware)
		r.Get("/", h.homeHandler)
	})

	return r
}
