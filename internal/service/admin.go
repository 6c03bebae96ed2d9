package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService holds the catalog and order mutations reserved to admins.
// Callers are expected to have checked the isAdmin flag.
type AdminService struct {
	products port.ProductStore
	orders   port.OrderStore
	events   port.OrderEvents
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService creates an admin service.
func NewAdminService(products port.ProductStore, orders port.OrderStore, events port.OrderEvents, metrics *observability.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		products: products,
		orders:   orders,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// UpsertProduct merge-updates the product when input carries an id, otherwise creates one.
// It returns the product id.
func (s *AdminService) UpsertProduct(ctx context.Context, input *domain.ProductInput) (string, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.UpsertProduct")
	defer span.End()

	if input.ID != "" {
		span.SetAttributes(attribute.String("product.id", input.ID))
		if err := s.products.MergeProduct(ctx, input); err != nil {
			return "", fmt.Errorf("merge product: %w", err)
		}
		s.logger.Info("product updated", zap.String("product_id", input.ID))
		return input.ID, nil
	}

	id, err := s.products.CreateProduct(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("product_id", id))
	return id, nil
}

// DeleteProduct hard-deletes a product. Past orders keep their snapshots.
func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := adminTracer.Start(ctx, "AdminService.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// ListOrders returns every order, newest first.
func (s *AdminService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// AssignOrder sets the delivery user and forces status assigned in a single write,
// whatever the previous status was.
func (s *AdminService) AssignOrder(ctx context.Context, orderID, deliveryUID string) error {
	ctx, span := adminTracer.Start(ctx, "AdminService.AssignOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("delivery.user_id", deliveryUID),
	)

	if deliveryUID == "" {
		return &domain.ErrValidation{Field: "deliveryUserId", Message: "required"}
	}

	fields := map[string]any{
		"assignedDeliveryUserId": deliveryUID,
		"status":                 string(domain.OrderAssigned),
	}
	if err := s.orders.MergeOrder(ctx, orderID, fields); err != nil {
		return fmt.Errorf("assign order: %w", err)
	}

	s.metrics.IncrOrderStatus(string(domain.OrderAssigned))
	s.logger.Info("order assigned",
		zap.String("order_id", orderID),
		zap.String("delivery_user_id", deliveryUID),
	)
	publishEvent(ctx, s.events, &domain.OrderEvent{
		Type:           domain.EventOrderAssigned,
		OrderID:        orderID,
		Status:         domain.OrderAssigned,
		DeliveryUserID: deliveryUID,
		OccurredAt:     s.now().UTC(),
	}, s.logger)
	return nil
}
