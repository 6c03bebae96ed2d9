package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// 3. Cart
// ============================================================

func getCartHandler(cart *service.CartService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cart")
		defer span.End()

		lines, err := cart.Read(ctx, CartScopeFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func addCartItemHandler(cart *service.CartService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cart/items")
		defer span.End()

		var req domain.CartLine
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, "productId is required")
			return
		}

		lines, err := cart.Add(ctx, CartScopeFromContext(ctx), req.ProductID, req.Quantity)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func setCartQuantityHandler(cart *service.CartService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/cart/items/{productId}")
		defer span.End()

		var req domain.CartQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		lines, err := cart.SetQuantity(ctx, CartScopeFromContext(ctx), chi.URLParam(r, "productId"), req.Quantity)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func removeCartItemHandler(cart *service.CartService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cart/items/{productId}")
		defer span.End()

		lines, err := cart.Remove(ctx, CartScopeFromContext(ctx), chi.URLParam(r, "productId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func clearCartHandler(cart *service.CartService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cart")
		defer span.End()

		if err := cart.Clear(ctx, CartScopeFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
