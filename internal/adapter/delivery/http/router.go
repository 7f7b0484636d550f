// Package http provides the HTTP delivery layer for the safe shortener service.
// This package contains the HTTP handlers, the authentication and rate limiting
// middleware, and the request and response types used by the API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Services bundles the use cases and adapters the router dispatches to.
// Limiter is optional; shortening is not throttled when it is nil.
type Services struct {
	URL     urlUseCase
	User    userUseCase
	Seeder  seedUseCase
	Tokens  tokenManager
	Limiter rateLimiter
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the safe shortener API.
func NewRouter(logger *httplog.Logger, svc Services) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	validate := newValidator()
	urlH := newURLHandler(svc.URL, validate)
	authH := newAuthHandler(svc.User, svc.Tokens, validate)
	adminH := newAdminHandler(svc.URL, svc.User, svc.Seeder, validate)

	r.Get("/r/{shortCode}", urlH.redirect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate(svc.Tokens))

		r.Get("/ping", handlePing)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.register)
			r.Post("/login", authH.login)
			r.Get("/me", authH.me)
		})

		r.With(limitRate(svc.Limiter)).Post("/shorten", urlH.shorten)
		r.Get("/resolve/{shortCode}", urlH.resolve)
		r.Get("/stats", urlH.totals)

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", urlH.listOwn)
			r.Get("/stats", urlH.stats)
			r.Patch("/{id}", urlH.reassignCode)
			r.Delete("/{id}", urlH.delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/urls", adminH.listURLs)
			r.Post("/urls/{id}/moderate", adminH.moderate)
			r.Get("/users", adminH.listUsers)
			r.Patch("/users/{id}/role", adminH.updateRole)
			r.Post("/seed", adminH.seed)
		})
	})

	return r
}

// newValidator returns a validator that reports fields by their json names.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonTagName)
	return validate
}
