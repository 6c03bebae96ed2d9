package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/config"
	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/handler"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/cache"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/cartstore"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/client"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/events"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/storefront-bfa-go/internal/port"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("circuit_breaker", cfg.CircuitBreakerEnabled),
		zap.String("cart_backend", cfg.CartBackend),
		zap.Bool("order_status_strict", cfg.OrderStatusStrict),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	endpoint := ""
	if cfg.TracingEnabled {
		endpoint = cfg.OTLPEndpoint
	}
	shutdown, err := observability.InitTracer(endpoint, "storefront-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		BreakerEnabled: cfg.CircuitBreakerEnabled,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	services := handler.Services{}
	if cfg.SupabaseURL == "" {
		logger.Warn("SUPABASE_URL not set, /v1 routes unavailable")
	} else {
		logger.Info("using Supabase as identity provider and document store",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		store := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewGuard("store", resilienceCfg),
			metrics,
			logger,
		)
		identity := client.NewIdentityClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			resilience.NewGuard("identity", resilienceCfg),
			metrics,
		)

		cartStorage, cartCloser, err := openCartStorage(cfg, logger)
		if err != nil {
			logger.Fatal("failed to open cart storage", zap.Error(err))
		}
		defer cartCloser.Close()

		orderEvents := openOrderEvents(cfg, logger)
		if c, ok := orderEvents.(io.Closer); ok {
			defer c.Close()
		}

		// --- Services ---
		sessions := service.NewSessionService(identity, store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		services = handler.Services{
			Sessions: sessions,
			SignIn: service.NewSignInFlow(sessions,
				cache.New[*service.PendingSignIn](cfg.RolePromptTTL), cfg.RolePromptTTL, logger),
			Profiles: service.NewProfileService(store, cache.New[*domain.UserProfile](cfg.CacheTTL), metrics),
			Catalog:  service.NewCatalogService(store, cfg.ProductListLimit, logger),
			Cart:     service.NewCartService(cartStorage, metrics, logger),
			Orders:   service.NewOrderService(store, store, orderEvents, cfg.OrderLookupConcurrency, metrics, logger),
			Admin:    service.NewAdminService(store, store, orderEvents, metrics, logger),
			Delivery: service.NewDeliveryService(store, orderEvents, cfg.OrderStatusStrict, metrics, logger),
			Checks: []handler.HealthCheck{
				{Name: "supabase", Ping: store.Ping},
			},
		}
		if p, ok := cartStorage.(pinger); ok {
			services.Checks = append(services.Checks, handler.HealthCheck{Name: "cart-" + cfg.CartBackend, Ping: p.Ping})
		}
	}

	// --- Router ---
	router := handler.NewRouter(services, metrics, logger)

	// --- Server ---
	// WriteTimeout stays zero so /v1/me/events streams are not cut.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openCartStorage picks the cart backend named by CART_BACKEND.
func openCartStorage(cfg *config.Config, logger *zap.Logger) (port.CartStorage, io.Closer, error) {
	switch cfg.CartBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("cart storage: redis", zap.String("addr", cfg.RedisAddr))
		return cartstore.NewRedis(rdb), rdb, nil
	case "memory":
		logger.Warn("cart storage: memory, carts are lost on restart")
		return cartstore.NewMemory(), closerFunc(func() error { return nil }), nil
	case "sqlite", "":
		s, err := cartstore.NewSQLite(cfg.CartSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cart storage: sqlite",
			zap.String("path", cfg.CartSQLitePath),
			zap.String("driver", cartstore.DriverName),
			zap.String("build", cartstore.BuildMode),
		)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown CART_BACKEND %q", cfg.CartBackend)
	}
}

func openOrderEvents(cfg *config.Config, logger *zap.Logger) port.OrderEvents {
	if cfg.KafkaBrokers == "" {
		logger.Info("order events disabled")
		return events.Noop{}
	}
	logger.Info("order events: kafka",
		zap.String("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaOrderTopic),
	)
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic))
}
