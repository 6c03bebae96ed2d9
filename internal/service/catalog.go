package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var catalogTracer = otel.Tracer("service/catalog")

// DefaultProductLimit caps catalog listings when the caller gives no limit.
const DefaultProductLimit = 50

// CatalogService serves read-only product queries.
type CatalogService struct {
	products     port.ProductStore
	defaultLimit int
	logger       *zap.Logger
}

// NewCatalogService creates a catalog service. defaultLimit <= 0 falls back to DefaultProductLimit.
func NewCatalogService(products port.ProductStore, defaultLimit int, logger *zap.Logger) *CatalogService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultProductLimit
	}
	return &CatalogService{products: products, defaultLimit: defaultLimit, logger: logger}
}

// ListActiveProducts returns up to limit active products in store order.
func (s *CatalogService) ListActiveProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.ListActiveProducts")
	defer span.End()

	if limit <= 0 {
		limit = s.defaultLimit
	}
	span.SetAttributes(attribute.Int("catalog.limit", limit))

	products, err := s.products.ListActiveProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	return products, nil
}

// GetProduct returns the product or nil when it does not exist.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Decorate attaches the active price for profile to each product.
func Decorate(products []domain.Product, profile *domain.UserProfile) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(products))
	for i := range products {
		item := domain.CatalogItem{Product: products[i]}
		if price, ok := ActivePrice(&products[i], profile); ok {
			item.ActivePrice = &price
		}
		items = append(items, item)
	}
	return items
}
