package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Sessions *service.SessionService
	SignIn   *service.SignInFlow
	Profiles *service.ProfileService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Orders   *service.OrderService
	Admin    *service.AdminService
	Delivery *service.DeliveryService
	Checks   []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Checks, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if svc.Sessions == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "storefront services not configured")
			}))
			return
		}

		authRequired := JWTAuthMiddleware(svc.Sessions, logger)

		// =============================================
		// 1. Auth
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", googleSignInHandler(svc.SignIn, logger))
			r.Post("/role-prompts/{promptId}", rolePromptAnswerHandler(svc.SignIn, logger))

			r.Group(func(r chi.Router) {
				r.Use(authRequired)
				r.Post("/logout", logoutHandler(svc.Sessions, logger))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authRequired)
			r.Get("/me", meHandler(svc.Profiles, logger))
			r.Get("/me/events", authEventsHandler(svc.Sessions, logger))
		})

		// =============================================
		// 2. Catalog (public)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(svc.Sessions))
			r.Get("/products", listProductsHandler(svc.Catalog, svc.Profiles, logger))
			r.Get("/products/{productId}", getProductHandler(svc.Catalog, svc.Profiles, logger))
		})

		// =============================================
		// 3. Cart (per client scope, no sign-in)
		// =============================================
		r.Route("/cart", func(r chi.Router) {
			r.Use(CartScopeMiddleware)
			r.Get("/", getCartHandler(svc.Cart, logger))
			r.Delete("/", clearCartHandler(svc.Cart, logger))
			r.Post("/items", addCartItemHandler(svc.Cart, logger))
			r.Put("/items/{productId}", setCartQuantityHandler(svc.Cart, logger))
			r.Delete("/items/{productId}", removeCartItemHandler(svc.Cart, logger))
		})

		// =============================================
		// 4. Orders
		// =============================================
		r.Route("/orders", func(r chi.Router) {
			r.Use(authRequired)
			r.Use(CartScopeMiddleware)
			r.Post("/", placeOrderHandler(svc.Orders, svc.Cart, svc.Profiles, logger))
			r.Get("/", listMyOrdersHandler(svc.Orders, logger))
			r.Get("/{orderId}", getMyOrderHandler(svc.Orders, logger))
		})

		// =============================================
		// 5. Admin
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(authRequired)
			r.Use(RequireRole(svc.Profiles, "admin console", isAdmin, logger))
			r.Post("/products", upsertProductHandler(svc.Admin, logger))
			r.Delete("/products/{productId}", deleteProductHandler(svc.Admin, logger))
			r.Get("/orders", listAllOrdersHandler(svc.Admin, logger))
			r.Post("/orders/{orderId}/assign", assignOrderHandler(svc.Admin, logger))
			r.Get("/metrics", metricsSnapshotHandler(metrics))
		})

		// =============================================
		// 6. Delivery
		// =============================================
		r.Route("/delivery", func(r chi.Router) {
			r.Use(authRequired)
			r.Use(RequireRole(svc.Profiles, "delivery console", isDelivery, logger))
			r.Get("/orders", listAssignedOrdersHandler(svc.Delivery, logger))
			r.Post("/orders/{orderId}/status", updateDeliveryStatusHandler(svc.Delivery, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "storefront-bfa", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		for _, check := range checks {
			start := time.Now()
			err := check.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health check failed", zap.String("dependency", check.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: check.Name, Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSnapshotHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
