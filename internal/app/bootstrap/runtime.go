// Package bootstrap builds the runtime dependencies shared by the server.
package bootstrap

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/MEPPERDONAS/185-reservas/internal/bookingapi"
	appconfig "github.com/MEPPERDONAS/185-reservas/internal/config"
	"github.com/MEPPERDONAS/185-reservas/internal/observability/metrics"
	"github.com/MEPPERDONAS/185-reservas/internal/session"
	"github.com/MEPPERDONAS/185-reservas/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// NameStore is the saved-name backend plus its readiness probe and cleanup.
type NameStore struct {
	Store session.NameStore
	Ready func(ctx context.Context) error
	Close func() error
}

// BuildNameStore picks the saved-name backend. Redis is used unless the
// memory store is forced or Redis cannot be reached.
func BuildNameStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) NameStore {
	if logger == nil {
		logger = logging.Default()
	}
	memory := NameStore{
		Store: session.NewMemoryNameStore(),
		Ready: func(context.Context) error { return nil },
		Close: func() error { return nil },
	}
	if cfg == nil || cfg.UseMemoryNameStore {
		logger.Info("using in-memory name store")
		return memory
	}

	client := BuildRedisClient(ctx, cfg, logger, true)
	if client == nil {
		logger.Warn("falling back to in-memory name store; saved names will not survive restarts")
		return memory
	}
	logger.Info("using redis name store", "addr", cfg.RedisAddr, "ttl", cfg.SavedNameTTL)
	return NameStore{
		Store: session.NewRedisNameStore(client, cfg.SavedNameTTL),
		Ready: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		Close: client.Close,
	}
}

// BuildMetrics registers the interaction metrics on a fresh registry and
// returns the handler that exposes them.
func BuildMetrics() (http.Handler, *metrics.InteractionMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewInteractionMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// BuildBookingAPI returns the booking server client and the latency
// instrumented API the page sessions call.
func BuildBookingAPI(cfg *appconfig.Config, m *metrics.InteractionMetrics, logger *logging.Logger) (*bookingapi.Client, bookingapi.API) {
	client := bookingapi.NewClient(cfg.BookingAPIBaseURL, cfg.BookingAPITimeout, logger)
	return client, bookingapi.NewInstrumented(client, m)
}
