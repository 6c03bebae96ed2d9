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

var deliveryTracer = otel.Tracer("service/delivery")

// DeliveryService serves delivery users working their assigned orders.
type DeliveryService struct {
	orders  port.OrderStore
	events  port.OrderEvents
	strict  bool
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDeliveryService creates a delivery service. With strict set, status updates must
// name a known status reachable from the current one.
func NewDeliveryService(orders port.OrderStore, events port.OrderEvents, strict bool, metrics *observability.Metrics, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{
		orders:  orders,
		events:  events,
		strict:  strict,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ListAssignedOrders returns the orders assigned to deliveryUID, newest first.
func (s *DeliveryService) ListAssignedOrders(ctx context.Context, deliveryUID string) ([]domain.Order, error) {
	ctx, span := deliveryTracer.Start(ctx, "DeliveryService.ListAssignedOrders")
	defer span.End()
	span.SetAttributes(attribute.String("delivery.user_id", deliveryUID))

	orders, err := s.orders.ListOrdersByDeliveryUser(ctx, deliveryUID)
	if err != nil {
		return nil, fmt.Errorf("list assigned orders: %w", err)
	}
	return orders, nil
}

// UpdateDeliveryStatus merge-sets the order status.
func (s *DeliveryService) UpdateDeliveryStatus(ctx context.Context, orderID, status string) error {
	ctx, span := deliveryTracer.Start(ctx, "DeliveryService.UpdateDeliveryStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	)

	if status == "" {
		return &domain.ErrValidation{Field: "status", Message: "required"}
	}
	next := domain.OrderStatus(status)

	if err := s.checkTransition(ctx, orderID, next); err != nil {
		return err
	}

	if err := s.orders.MergeOrder(ctx, orderID, map[string]any{"status": status}); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	s.metrics.IncrOrderStatus(status)
	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", status),
	)
	publishEvent(ctx, s.events, &domain.OrderEvent{
		Type:       domain.EventOrderStatusChanged,
		OrderID:    orderID,
		Status:     next,
		OccurredAt: s.now().UTC(),
	}, s.logger)
	return nil
}

// checkTransition enforces the status table in strict mode and only logs otherwise.
func (s *DeliveryService) checkTransition(ctx context.Context, orderID string, next domain.OrderStatus) error {
	if !next.Known() {
		if s.strict {
			return &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", next)}
		}
		s.logger.Warn("order status outside the known set",
			zap.String("order_id", orderID),
			zap.String("status", string(next)),
		)
		return nil
	}
	if !s.strict {
		return nil
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return &domain.ErrNotFound{Resource: "order", ID: orderID}
	}
	if !order.Status.CanTransition(next) {
		return &domain.ErrValidation{
			Field:   "status",
			Message: fmt.Sprintf("cannot move order from %q to %q", order.Status, next),
		}
	}
	return nil
}
