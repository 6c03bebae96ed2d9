package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var cartTracer = otel.Tracer("service/cart")

// CartKey is the storage key holding the serialized cart. Bump the suffix on format changes.
const CartKey = "ec_cart_v1"

// CartService keeps the ordered, client-scoped cart. Every mutation rewrites the whole list.
type CartService struct {
	storage port.CartStorage
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCartService creates a cart service over the given storage.
func NewCartService(storage port.CartStorage, metrics *observability.Metrics, logger *zap.Logger) *CartService {
	return &CartService{storage: storage, metrics: metrics, logger: logger}
}

// Read returns the cart for scope. A missing or unparsable value reads as an empty cart.
func (s *CartService) Read(ctx context.Context, scope string) ([]domain.CartLine, error) {
	ctx, span := cartTracer.Start(ctx, "CartService.Read")
	defer span.End()
	span.SetAttributes(attribute.String("cart.scope", scope))

	raw, ok, err := s.storage.Get(ctx, scope, CartKey)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if !ok || raw == "" {
		return []domain.CartLine{}, nil
	}

	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil || lines == nil {
		s.logger.Debug("cart: discarding unparsable value", zap.String("scope", scope))
		return []domain.CartLine{}, nil
	}
	return lines, nil
}

func (s *CartService) write(ctx context.Context, scope string, lines []domain.CartLine) error {
	b, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, scope, CartKey, string(b)); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

// Add increments the line for productID, or appends a new one. qty below 1 counts as 1.
func (s *CartService) Add(ctx context.Context, scope, productID string, qty int) ([]domain.CartLine, error) {
	ctx, span := cartTracer.Start(ctx, "CartService.Add")
	defer span.End()

	if qty < 1 {
		qty = 1
	}

	lines, err := s.Read(ctx, scope)
	if err != nil {
		return nil, err
	}

	if i := indexOfLine(lines, productID); i >= 0 {
		lines[i].Quantity += qty
	} else {
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: qty})
	}

	if err := s.write(ctx, scope, lines); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOp("add")
	return lines, nil
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (s *CartService) Remove(ctx context.Context, scope, productID string) ([]domain.CartLine, error) {
	ctx, span := cartTracer.Start(ctx, "CartService.Remove")
	defer span.End()

	lines, err := s.Read(ctx, scope)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}

	if err := s.write(ctx, scope, kept); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOp("remove")
	return kept, nil
}

// SetQuantity sets an existing line to max(1, qty). Nothing is written when the line is absent.
func (s *CartService) SetQuantity(ctx context.Context, scope, productID string, qty int) ([]domain.CartLine, error) {
	ctx, span := cartTracer.Start(ctx, "CartService.SetQuantity")
	defer span.End()

	lines, err := s.Read(ctx, scope)
	if err != nil {
		return nil, err
	}

	i := indexOfLine(lines, productID)
	if i < 0 {
		return lines, nil
	}
	lines[i].Quantity = max(1, qty)

	if err := s.write(ctx, scope, lines); err != nil {
		return nil, err
	}
	s.metrics.IncrCartOp("set_quantity")
	return lines, nil
}

// Clear empties the cart for scope.
func (s *CartService) Clear(ctx context.Context, scope string) error {
	ctx, span := cartTracer.Start(ctx, "CartService.Clear")
	defer span.End()

	if err := s.storage.Delete(ctx, scope, CartKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.metrics.IncrCartOp("clear")
	return nil
}

func indexOfLine(lines []domain.CartLine, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
