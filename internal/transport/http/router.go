package http

import (
	"net/http"

	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-accounts-nosql/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned stop func releases
// the rate limiter's background cleanup and should run after the server shuts down.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, applied to public credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	var issuer handler.TokenIssuer
	if deps.JWTProvider != nil {
		issuer = deps.JWTProvider
	}
	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(deps.Accounts, issuer)

	r.Handle("/metrics", deps.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/accounts", func(r chi.Router) {
			// ── Public routes (no auth) ──────────────────────────────────────
			r.With(sensitiveRL.Limit).Post("/register", accountH.Register)
			r.With(sensitiveRL.Limit).Post("/verify", accountH.Verify)
			r.With(sensitiveRL.Limit).Post("/login", accountH.Login)
			r.With(sensitiveRL.Limit).Post("/reset_password_request", accountH.RequestPasswordReset)
			r.With(sensitiveRL.Limit).Patch("/reset_password", accountH.ResetPassword)

			// ── Authenticated routes ─────────────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(authMw)

				r.Get("/show_profile", accountH.ShowProfile)
				r.Patch("/update_profile", accountH.UpdateProfile)
				r.Patch("/change_password", accountH.ChangePassword)
			})
		})
	})

	return r, sensitiveRL.Stop
}
