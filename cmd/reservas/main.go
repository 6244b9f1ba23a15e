package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MEPPERDONAS/185-reservas/internal/api/router"
	"github.com/MEPPERDONAS/185-reservas/internal/app/bootstrap"
	appconfig "github.com/MEPPERDONAS/185-reservas/internal/config"
	"github.com/MEPPERDONAS/185-reservas/internal/liveview"
	"github.com/MEPPERDONAS/185-reservas/internal/page"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting reservas page server",
		"env", cfg.Env,
		"port", cfg.Port,
		"booking_api", cfg.BookingAPIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Error("failed to listen", "error", err)
		os.Exit(1)
	}
	if err := run(ctx, cfg, ln, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// run serves until ctx is cancelled, then drains in-flight requests and
// closes every page session.
func run(ctx context.Context, cfg *appconfig.Config, ln net.Listener, logger *logging.Logger) error {
	names := bootstrap.BuildNameStore(ctx, cfg, logger)
	defer func() {
		if err := names.Close(); err != nil {
			logger.Warn("failed to close name store", "error", err)
		}
	}()

	metricsHandler, interactionMetrics := bootstrap.BuildMetrics()
	pages, api := bootstrap.BuildBookingAPI(cfg, interactionMetrics, logger.Component("bookingapi"))

	live := liveview.NewHandler(pages, api, names.Store, interactionMetrics, liveview.Options{
		Page: page.Options{
			ToastDuration:     cfg.ToastDuration,
			FlashStagger:      cfg.FlashStagger,
			HighlightDuration: cfg.HighlightDuration,
		},
		EventRate:  cfg.EventRatePerSec,
		EventBurst: cfg.EventBurst,
	}, nil, logger.Component("liveview"))

	handler := router.New(&router.Config{
		Logger:             logger,
		LiveView:           live,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Ready:              names.Ready,
		ConnectRatePerSec:  cfg.ConnectRatePerSec,
		ConnectBurst:       cfg.ConnectBurst,
	})

	// Page sessions are long-lived WebSockets, so only the headers are
	// bounded. BaseContext ties every session to ctx for shutdown.
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...", "active_sessions", live.ActiveSessions())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
