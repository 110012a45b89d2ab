// Package http provides HTTP routing and middleware configuration
// for the authentication server.
package http

import (
	"net/http"

	"github.com/atinyakov/gophlogin/internal/metrics"
	"github.com/atinyakov/gophlogin/internal/middleware"
	"github.com/atinyakov/gophlogin/internal/rate"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the authentication API and the metrics endpoint.
//
// Routes:
//
//	POST /api/register   → authHandler.Register
//	POST /api/login      → authHandler.Login (rate limited when limiter != nil)
//	GET  /api/me         → authHandler.Me (bearer token)
//	POST /api/logout     → authHandler.Logout (bearer token)
//	GET  /metrics        → Prometheus exposition
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. WithRequestLogging(logger)
//  3. AllowContentType("application/json") on /api
func NewRouter(
	authHandler *AuthHandler,
	authn middleware.Authenticator,
	limiter rate.Limiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter, "login:", logger, func(*http.Request) {
					m.LoginAttempt(metrics.ResultLimited)
				}))
			}
			r.Post("/login", authHandler.Login)
		})

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(authn))
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})

	return r
}
