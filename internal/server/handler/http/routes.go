package http

import (
	"net/http"

	"github.com/atinyakov/GophContacts/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Contacts *ContactHandler
	Health   *HealthHandler
}

// NewRouter constructs the HTTP handler that serves the contacts API.
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. WithRequestLogging(logger)
//  3. AllowContentType, limited to JSON, urlencoded and multipart bodies
//
// Public routes:
//
//	POST /signup, POST /login, GET /confirm/{token},
//	POST /request_email, GET /refresh_token, GET /healthz
//
// Routes behind Authenticate(resolver):
//
//	GET /users/me, PATCH /users/avatar, /contacts...
func NewRouter(h Handlers, resolver middleware.UserResolver, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.AllowContentType(
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	))

	r.Get("/healthz", h.Health.Health)

	r.Post("/signup", h.Auth.Signup)
	r.Post("/login", h.Auth.Login)
	r.Get("/confirm/{token}", h.Auth.Confirm)
	r.Post("/request_email", h.Auth.RequestEmail)
	r.Get("/refresh_token", h.Auth.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(resolver, logger))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", h.Users.Me)
			r.Patch("/avatar", h.Users.UpdateAvatar)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.Contacts.List)
			r.Post("/", h.Contacts.Create)
			r.Get("/search", h.Contacts.Search)
			r.Get("/birthdays", h.Contacts.Birthdays)
			r.Get("/{id}", h.Contacts.Get)
			r.Put("/{id}", h.Contacts.Update)
			r.Delete("/{id}", h.Contacts.Delete)
		})
	})

	return r
}
