package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"identityd/internal/auth"
	"identityd/internal/config"
)

type Server struct {
	Auth     *auth.Service
	Sessions *auth.SessionStore
	Bearer   *auth.TokenManager
	Config   config.Config
	Log      *slog.Logger
}

func NewServer(cfg config.Config, svc *auth.Service, sessions *auth.SessionStore, bearer *auth.TokenManager, log *slog.Logger) *Server {
	return &Server{
		Auth:     svc,
		Sessions: sessions,
		Bearer:   bearer,
		Config:   cfg,
		Log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	r.Post("/api/register", s.handleRegister)
	r.Post("/api/verify-email", s.handleVerifyEmail)
	r.Post("/api/resend-verification", s.handleResendVerification)
	r.Post("/api/forgot-password", s.handleForgotPassword)
	r.Post("/api/reset-password", s.handleResetPassword)

	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireSession)

		pr.Post("/api/auth/logout", s.handleLogout)
		pr.Get("/api/auth/me", s.handleMe)

		pr.Get("/api/sessions", s.handleListSessions)
		pr.Delete("/api/sessions/{id}", s.handleDeleteSession)

		pr.Post("/api/two-factor/setup", s.handleTwoFactorSetup)
		pr.Post("/api/two-factor/enable", s.handleTwoFactorEnable)
		pr.Post("/api/two-factor/disable", s.handleTwoFactorDisable)
		pr.Post("/api/two-factor/backup-codes", s.handleRegenerateBackupCodes)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

// secureHeaders adds common security headers for an API-only surface.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}
