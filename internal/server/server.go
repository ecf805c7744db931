// Package server exposes the operator HTTP API: read-only views of
// positions, trade history, safety state, and recent plans, plus the
// safety-reset control.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/snipebot/internal/config"
)

// Server is the headless HTTP API server for the bot.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered, wrapped in logging and
// CORS middleware.
func New(cfg config.ServerConfig, h *Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", h.Health)

	// Runtime status and open positions.
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/positions", h.ListPositions)

	// Last cached mark per asset.
	mux.HandleFunc("GET /api/prices/{mint}", h.LastPrice)

	// Safety circuit breaker.
	mux.HandleFunc("GET /api/safety", h.SafetyState)
	mux.HandleFunc("POST /api/safety/reset", h.ResetSafety)

	// Trade history and aggregates.
	mux.HandleFunc("GET /api/trades", h.ListTrades)
	mux.HandleFunc("GET /api/performance", h.Performance)

	// Recent entry/exit plan log.
	mux.HandleFunc("GET /api/plans/entries", h.ListEntryPlans)
	mux.HandleFunc("GET /api/plans/exits", h.ListExitPlans)

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. If no origins
// are configured, every origin is allowed.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Preflight requests end here.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
