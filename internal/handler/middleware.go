package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	sessionKey   contextKey = "session"
	cartScopeKey contextKey = "cartScope"
)

// CartScopeCookie identifies the client storage scope that owns a cart.
const CartScopeCookie = "ec_cart_scope"

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// JWTAuthMiddleware validates Bearer tokens and injects the identity into context.
func JWTAuthMiddleware(sessions *service.SessionService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			identity, sessionID, err := sessions.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, sessionKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware injects the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, ok := bearerToken(r); ok {
				if identity, sessionID, err := sessions.ValidateAccessToken(tokenString); err == nil {
					ctx := context.WithValue(r.Context(), identityKey, identity)
					r = r.WithContext(context.WithValue(ctx, sessionKey, sessionID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects callers whose profile lacks the flag checked by allowed.
// Must run after JWTAuthMiddleware.
func RequireRole(profiles *service.ProfileService, action string, allowed func(*domain.UserProfile) bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			profile, err := profiles.GetProfile(r.Context(), identity.UID)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if profile == nil || !allowed(profile) {
				handleServiceError(w, &domain.ErrForbidden{Action: action}, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAdmin(p *domain.UserProfile) bool    { return p.IsAdmin }
func isDelivery(p *domain.UserProfile) bool { return p.IsDelivery }

// CartScopeMiddleware issues the cart scope cookie on first use and exposes it in context.
func CartScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := ""
		if c, err := r.Cookie(CartScopeCookie); err == nil && c.Value != "" {
			scope = c.Value
		} else {
			scope = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     CartScopeCookie,
				Value:    scope,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), cartScopeKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the authenticated identity, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	v, _ := ctx.Value(identityKey).(*domain.Identity)
	return v
}

// SessionIDFromContext returns the id of the caller's session, or "".
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(string)
	return v
}

// CartScopeFromContext returns the cart scope set by CartScopeMiddleware.
func CartScopeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(cartScopeKey).(string)
	return v
}
