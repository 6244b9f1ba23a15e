package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/MEPPERDONAS/185-reservas/internal/http/middleware"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

const readyTimeout = 2 * time.Second

// LiveView is the page session surface mounted by the router.
type LiveView interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	HandleShimJS(w http.ResponseWriter, r *http.Request)
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LiveView           LiveView
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Ready reports whether dependencies such as the name store are reachable.
	Ready func(ctx context.Context) error

	// Per-IP limit on WebSocket connection attempts. Zero disables it.
	ConnectRatePerSec float64
	ConnectBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	r.Get("/ready", readyCheck(cfg.Ready, cfg.Logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.LiveView != nil {
		r.With(middleware.Compress(5)).Get("/static/reservas.js", cfg.LiveView.HandleShimJS)

		if cfg.ConnectRatePerSec > 0 {
			r.With(httpmiddleware.RateLimit(cfg.ConnectRatePerSec, cfg.ConnectBurst)).Get("/ws", cfg.LiveView.HandleWebSocket)
		} else {
			r.Get("/ws", cfg.LiveView.HandleWebSocket)
		}
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readyCheck(ready func(ctx context.Context) error, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				if logger != nil {
					logger.Warn("readiness check failed", "error", err)
				}
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
