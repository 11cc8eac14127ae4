package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/ledger"
	"github.com/AlexTLDR/giftregistry/internal/notify"
	"github.com/AlexTLDR/giftregistry/internal/server/handlers"
)

const sessionName = "auth-session"

type notifier interface {
	Enqueue(msg notify.Message) bool
}

type Server struct {
	config       *config.Config
	log          *slog.Logger
	db           *database.DB
	ledger       *ledger.Ledger
	events       events.Subscriber
	notifier     notifier
	sessionStore *sessions.CookieStore
	oauth        *oauth2.Config
	fetchProfile func(ctx context.Context, code string) (domain.Profile, error)
	router       chi.Router
	shutdown     chan struct{}
}

// GetDB implements handlers.Server interface
func (s *Server) GetDB() *database.DB {
	return s.db
}

// GetConfig implements handlers.Server interface
func (s *Server) GetConfig() *config.Config {
	return s.config
}

func (s *Server) GetLedger() *ledger.Ledger {
	return s.ledger
}

func (s *Server) GetEvents() events.Subscriber {
	return s.events
}

func (s *Server) GetLogger() *slog.Logger {
	return s.log
}

// Notify queues a host notification. It never blocks.
func (s *Server) Notify(msg notify.Message) {
	if s.notifier != nil {
		s.notifier.Enqueue(msg)
	}
}

// ShuttingDown is closed when the server starts draining, so long-lived
// streams can end.
func (s *Server) ShuttingDown() <-chan struct{} {
	return s.shutdown
}

func New(cfg *config.Config, logger *slog.Logger, db *database.DB, l *ledger.Ledger, sub events.Subscriber, n notifier) *Server {
	if sub == nil {
		sub = events.Nop{}
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		config:       cfg,
		log:          logger.With("component", "http"),
		db:           db,
		ledger:       l,
		events:       sub,
		notifier:     n,
		sessionStore: store,
		oauth:        googleOAuthConfig(cfg),
		shutdown:     make(chan struct{}),
	}
	s.fetchProfile = s.fetchGoogleProfile

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.loadIdentity)

	limit := rateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	r.Get("/health", handlers.HandleHealth(s))

	// Auth routes
	r.Get("/auth/google", s.handleGoogleLogin)
	r.Get("/auth/google/callback", s.handleGoogleCallback)
	r.Get("/auth/logout", s.handleLogout)
	r.Post("/auth/logout", s.handleLogout)

	// Public routes
	r.Get("/gifts", handlers.HandleListGifts(s))
	r.Get("/gifts/events", handlers.HandleGiftEvents(s))
	r.Get("/invites/{token}", handlers.HandleVerifyInvite(s))

	// Ledger mutations: approved guests only
	r.Group(func(r chi.Router) {
		r.Use(s.requireGuest)
		r.Use(limit)
		r.Use(s.requireApproved)
		r.Post("/gifts/{id}/reserve", handlers.HandleReserveGift(s))
		r.Post("/gifts/{id}/release", handlers.HandleReleaseGift(s))
	})

	// Any signed-in guest, approved or not
	r.Group(func(r chi.Router) {
		r.Use(s.requireGuest)
		r.Get("/me", handlers.HandleMe(s))
		r.Put("/me/phone", handlers.HandleUpdatePhone(s))
		r.Get("/event-settings", handlers.HandleGetEventSettings(s))
		r.With(limit).Post("/invites/{token}/use", handlers.HandleUseInvite(s))
		r.With(limit).Post("/invites/{token}/confirm", handlers.HandleConfirmPresence(s))
	})

	// Admin routes (protected)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/gifts", handlers.HandleAdminCreateGift(s))
		r.Put("/gifts/{id}", handlers.HandleAdminUpdateGift(s))
		r.Delete("/gifts/{id}", handlers.HandleAdminDeleteGift(s))
		r.Delete("/gifts/{id}/claimants/{guestId}", handlers.HandleAdminReleaseClaim(s))
		r.Get("/gifts/export.csv", handlers.HandleAdminExportCSV(s))

		r.Get("/guests", handlers.HandleAdminListGuests(s))
		r.Put("/guests/{id}/approve", handlers.HandleAdminSetApproval(s, domain.StatusApproved))
		r.Put("/guests/{id}/reject", handlers.HandleAdminSetApproval(s, domain.StatusRejected))

		r.Post("/invites", handlers.HandleAdminCreateInvite(s))
		r.Get("/invites", handlers.HandleAdminListInvites(s))
		r.Delete("/invites/{token}", handlers.HandleAdminDeleteInvite(s))

		r.Put("/event-settings", handlers.HandleAdminUpdateEventSettings(s))
		r.Get("/email-logs", handlers.HandleAdminEmailLogs(s))
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests for up to the configured shutdown timeout.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv.RegisterOnShutdown(func() { close(s.shutdown) })

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
