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
	"golang.org/x/sync/errgroup"
)

var orderTracer = otel.Tracer("service/order")

// OrderService turns cart lines into persisted orders and lists them back.
type OrderService struct {
	products          port.ProductStore
	orders            port.OrderStore
	events            port.OrderEvents
	lookupConcurrency int
	metrics           *observability.Metrics
	logger            *zap.Logger
	now               func() time.Time
}

// NewOrderService creates the order workflow. lookupConcurrency < 1 means one lookup at a time.
func NewOrderService(
	products port.ProductStore,
	orders port.OrderStore,
	events port.OrderEvents,
	lookupConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OrderService {
	if lookupConcurrency < 1 {
		lookupConcurrency = 1
	}
	return &OrderService{
		products:          products,
		orders:            orders,
		events:            events,
		lookupConcurrency: lookupConcurrency,
		metrics:           metrics,
		logger:            logger,
		now:               time.Now,
	}
}

// CreateOrder snapshots the live product data for each line and persists a placed order.
// Lines whose product no longer exists are skipped silently. A product that resolves but
// has no price for any tier is skipped as well, with a warning, so no stored line ever
// carries an undefined unit price or poisons the subtotal.
// There is no idempotency key: two calls create two orders.
func (s *OrderService) CreateOrder(ctx context.Context, req *domain.CreateOrderRequest) (*domain.Order, error) {
	ctx, span := orderTracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.Identity == nil {
		return nil, &domain.ErrUnauthorized{Message: "sign-in required to place an order"}
	}
	span.SetAttributes(
		attribute.String("user.id", req.Identity.UID),
		attribute.Int("order.requested_lines", len(req.Items)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("create_order", time.Since(start))
	}()

	products, err := s.lookupProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	subtotal := 0.0
	for i, item := range req.Items {
		p := products[i]
		if p == nil {
			s.logger.Debug("order: skipping missing product",
				zap.String("user_id", req.Identity.UID),
				zap.String("product_id", item.ProductID),
			)
			continue
		}
		unitPrice, ok := ActivePrice(p, req.Profile)
		if !ok {
			s.logger.Warn("order: skipping product without a price",
				zap.String("user_id", req.Identity.UID),
				zap.String("product_id", p.ID),
			)
			continue
		}
		subtotal += unitPrice * float64(item.Quantity)
		lines = append(lines, domain.OrderLine{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
		})
	}

	order := &domain.Order{
		UserID:    req.Identity.UID,
		UserEmail: req.Identity.Email,
		Items:     lines,
		Subtotal:  subtotal,
		Status:    domain.OrderPlaced,
		CreatedAt: s.now().UTC(),
	}

	id, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	order.ID = id

	s.metrics.IncrOrderCreated()
	s.metrics.ObserveOrderSubtotal(subtotal)
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int("lines", len(lines)),
		zap.Float64("subtotal", subtotal),
	)

	s.publish(ctx, &domain.OrderEvent{
		Type:       domain.EventOrderPlaced,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Subtotal:   subtotal,
		OccurredAt: order.CreatedAt,
	})

	return order, nil
}

// lookupProducts resolves each line's product; the result is indexed like items.
func (s *OrderService) lookupProducts(ctx context.Context, items []domain.CartLine) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			p, err := s.products.GetProduct(gCtx, item.ProductID)
			if err != nil {
				return fmt.Errorf("lookup product %s: %w", item.ProductID, err)
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// ListMyOrders returns the orders of uid, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, uid string) ([]domain.Order, error) {
	ctx, span := orderTracer.Start(ctx, "OrderService.ListMyOrders")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	orders, err := s.orders.ListOrdersByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetMyOrder returns one order owned by uid, or nil when it does not exist or belongs to someone else.
func (s *OrderService) GetMyOrder(ctx context.Context, uid, orderID string) (*domain.Order, error) {
	ctx, span := orderTracer.Start(ctx, "OrderService.GetMyOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != uid {
		return nil, nil
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, event *domain.OrderEvent) {
	publishEvent(ctx, s.events, event, s.logger)
}

func publishEvent(ctx context.Context, events port.OrderEvents, event *domain.OrderEvent, logger *zap.Logger) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("order event not published",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
