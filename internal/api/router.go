package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/daap14/caseentry/internal/api/handler"
	"github.com/daap14/caseentry/internal/api/middleware"
)

// SessionRegistry is the set of live client sessions.
type SessionRegistry interface {
	middleware.SessionLookup
	handler.SessionOpener
	handler.SessionCounter
}

// Tokens signs and verifies bearer tokens.
type Tokens interface {
	middleware.TokenParser
	handler.TokenIssuer
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger       handler.DBPinger
	Sessions       SessionRegistry
	Tokens         Tokens
	Accounts       handler.Accounts
	Roster         handler.Roster
	Submitter      handler.RecordSubmitter
	RateLimiter    *middleware.RateLimiter
	Metrics        http.Handler
	ResolveTimeout time.Duration
	Version        string
	OpenAPISpec    []byte
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Sessions, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec, deps.Version)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(0)
	}

	authHandler := handler.NewAuthHandler(deps.Accounts, deps.Sessions, deps.Tokens, deps.ResolveTimeout)
	sessionHandler := handler.NewSessionHandler()
	recordHandler := handler.NewRecordHandler(deps.Submitter)
	userHandler := handler.NewUserHandler(deps.Roster)

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Tokens, deps.Sessions, deps.ResolveTimeout))

		r.With(middleware.RequireSession).Post("/auth/logout", authHandler.Logout)

		r.Get("/session", sessionHandler.ServeHTTP)

		r.With(middleware.RequireApproved(), rateLimiter.Middleware).Post("/records", recordHandler.Submit)

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Post("/{id}/approve", userHandler.Approve)
			r.Patch("/{id}/role", userHandler.UpdateRole)
			r.Delete("/{id}", userHandler.Delete)
		})
	})

	return r
}
