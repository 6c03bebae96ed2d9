package handler

import (
	"net/http"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 2. Catalog
// ============================================================

// callerProfile loads the profile of a signed-in caller; anonymous callers get nil.
// A failed read degrades to anonymous pricing.
func callerProfile(r *http.Request, profiles *service.ProfileService, logger *zap.Logger) *domain.UserProfile {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		return nil
	}
	profile, err := profiles.GetProfile(r.Context(), identity.UID)
	if err != nil {
		logger.Warn("catalog: profile read failed, using default prices",
			zap.String("user_id", identity.UID),
			zap.Error(err),
		)
		return nil
	}
	return profile
}

func listProductsHandler(catalog *service.CatalogService, profiles *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products")
		defer span.End()

		products, err := catalog.ListActiveProducts(ctx, parseLimit(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		items := service.Decorate(products, callerProfile(r, profiles, logger))
		writeJSON(w, http.StatusOK, items)
	}
}

func getProductHandler(catalog *service.CatalogService, profiles *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/products/{productId}")
		defer span.End()

		productID := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", productID))

		product, err := catalog.GetProduct(ctx, productID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if product == nil {
			handleServiceError(w, &domain.ErrNotFound{Resource: "product", ID: productID}, logger)
			return
		}

		items := service.Decorate([]domain.Product{*product}, callerProfile(r, profiles, logger))
		writeJSON(w, http.StatusOK, items[0])
	}
}
