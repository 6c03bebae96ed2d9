package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 4. Orders
// ============================================================

// placeOrderHandler submits the given items, or the caller's cart when the body has none.
// A cart checkout clears the cart once the order is stored.
func placeOrderHandler(orders *service.OrderService, cart *service.CartService, profiles *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/orders")
		defer span.End()

		var req domain.PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		for _, line := range req.Items {
			if line.ProductID == "" || line.Quantity < 1 {
				writeError(w, http.StatusBadRequest, "each item needs a productId and a quantity of at least 1")
				return
			}
		}

		identity := IdentityFromContext(ctx)
		scope := CartScopeFromContext(ctx)

		fromCart := req.Items == nil
		items := req.Items
		if fromCart {
			lines, err := cart.Read(ctx, scope)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			items = lines
		}
		span.SetAttributes(attribute.Bool("order.from_cart", fromCart))

		profile, err := profiles.GetProfile(ctx, identity.UID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		order, err := orders.CreateOrder(ctx, &domain.CreateOrderRequest{
			Identity: identity,
			Profile:  profile,
			Items:    items,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if fromCart {
			if err := cart.Clear(ctx, scope); err != nil {
				logger.Warn("order placed but cart not cleared",
					zap.String("order_id", order.ID),
					zap.Error(err),
				)
			}
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func listMyOrdersHandler(orders *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		list, err := orders.ListMyOrders(ctx, IdentityFromContext(ctx).UID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getMyOrderHandler(orders *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders/{orderId}")
		defer span.End()

		orderID := chi.URLParam(r, "orderId")
		span.SetAttributes(attribute.String("order.id", orderID))

		order, err := orders.GetMyOrder(ctx, IdentityFromContext(ctx).UID, orderID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if order == nil {
			handleServiceError(w, &domain.ErrNotFound{Resource: "order", ID: orderID}, logger)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}
