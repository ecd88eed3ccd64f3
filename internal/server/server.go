// Package server is the local preview server for the publications page.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/slowvak/midel/internal/auth"
	"github.com/slowvak/midel/internal/issue"
)

// Config holds what the server needs. Everything in it is read-only once
// the server starts.
type Config struct {
	CatalogPath  string
	Issues       *issue.Builder
	LoginDelay   time.Duration
	LoginLimiter *rate.Limiter
	Logger       *zap.Logger
}

// Server serves the publications page.
type Server struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Server. A nil logger discards logs; a nil limiter allows a
// login attempt every 200ms with bursts of 5.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LoginLimiter == nil {
		cfg.LoginLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 5)
	}
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", s.handleIndex)
	r.Get("/publications.json", s.handleRaw)
	r.Get("/export", s.handleExport)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Route("/submit", func(r chi.Router) {
		r.Get("/check", s.handleCheckTitle)
		r.Post("/preview", s.handlePreview)
		r.Post("/", s.handleSubmit)
	})
	return r
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// authenticator builds the per-request mock authenticator over cookies.
func (s *Server) authenticator(w http.ResponseWriter, r *http.Request) *auth.Authenticator {
	return auth.New(&cookieStore{w: w, r: r},
		auth.WithDelay(s.cfg.LoginDelay),
		auth.WithLimiter(s.cfg.LoginLimiter),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("serving publications", zap.String("addr", ln.Addr().String()), zap.String("catalog", s.cfg.CatalogPath))
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
