package server

import (
	"context"
	"net/http"
	"time"

	"github.com/ardev/dealflow-be/internal/auth"
	"github.com/ardev/dealflow-be/internal/billing"
	"github.com/ardev/dealflow-be/internal/config"
	"github.com/ardev/dealflow-be/internal/http/handlers"
	"github.com/ardev/dealflow-be/internal/middleware"
	"github.com/ardev/dealflow-be/internal/notify"
	"github.com/ardev/dealflow-be/internal/session"
	"github.com/ardev/dealflow-be/internal/storage"
)

// Stores groups the persistence interfaces the server depends on.
type Stores struct {
	Users         storage.UserStore
	Deals         storage.DealStore
	Subscriptions storage.SubscriptionStore
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, stores Stores, authority *auth.LocalAuthority, bootstrapper *session.Bootstrapper) *Server {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(time.Now())
	health.Register(mux)

	authHandler := handlers.NewAuthHandler(authority, bootstrapper)
	authHandler.Register(mux)

	boardHandler := handlers.NewBoardHandler(stores.Deals, authority, notify.Log{})
	boardHandler.Register(mux)

	plansHandler := handlers.NewPlansHandler(billing.NewPlanService(cfg, nil))
	plansHandler.Register(mux)

	webhookHandler := billing.NewWebhookHandler(cfg.BillingWebhookSecret, stores.Subscriptions)
	webhookHandler.Register(mux)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
