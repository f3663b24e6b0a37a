package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hongminglow/papertrade/internal/auth"
	"github.com/hongminglow/papertrade/internal/config"
	"github.com/hongminglow/papertrade/internal/http/handlers"
	"github.com/hongminglow/papertrade/internal/middleware"
	"github.com/hongminglow/papertrade/internal/quote"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/hongminglow/papertrade/internal/trading"
	"github.com/hongminglow/papertrade/internal/view"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner    *http.Server
	sessions *auth.Sessions
	log      logrus.FieldLogger
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, quotes quote.Provider, log logrus.FieldLogger) (*Server, error) {
	renderer, err := view.New(log)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	sessions := auth.NewSessions(store, tokens, cfg.SessionTTL, cfg.CookieSecure)
	authHandler := handlers.NewAuthHandler(auth.NewService(store, cfg.InitialCash), sessions, renderer)
	tradingHandler := handlers.NewTradingHandler(trading.NewService(store, quotes), renderer)
	health := handlers.NewHealthHandler(time.Now(), store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NoCache)

	health.Register(r)
	authHandler.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(sessions, renderer))
		tradingHandler.Register(r)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, sessions: sessions, log: log}, nil
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

// ScheduleSessionSweep runs an expired-session sweep on the given cron
// schedule. The returned stop func blocks until a running sweep finishes.
func (s *Server) ScheduleSessionSweep(schedule string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, s.sweepSessions); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

func (s *Server) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.sessions.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Warn("sweep expired sessions")
		return
	}
	if n > 0 {
		s.log.WithField("deleted", n).Debug("swept expired sessions")
	}
}
