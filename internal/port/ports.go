// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
)

// IdentityProvider signs users in and out. The Google id token stands in for the browser popup.
type IdentityProvider interface {
	SignInWithGoogle(ctx context.Context, idToken string) (*domain.Identity, string, error)
	SignOut(ctx context.Context, providerToken string) error
}

// RolePrompter asks a first-time user to pick a primary role and suspends until they answer.
type RolePrompter interface {
	PromptRole(ctx context.Context, identity *domain.Identity) (domain.Role, error)
}

// ProfileStore reads and writes documents of the users collection.
// GetProfile returns nil, nil when no document exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	CreateProfile(ctx context.Context, profile *domain.UserProfile) error
}

// ProductStore reads and writes documents of the products collection.
// GetProduct returns nil, nil when no document exists.
type ProductStore interface {
	ListActiveProducts(ctx context.Context, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, input *domain.ProductInput) (string, error)
	MergeProduct(ctx context.Context, input *domain.ProductInput) error
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore reads and writes documents of the orders collection.
// List calls return newest first.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) (string, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, uid string) ([]domain.Order, error)
	ListOrdersByDeliveryUser(ctx context.Context, deliveryUID string) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	// MergeOrder returns ErrNotFound when no order has id.
	MergeOrder(ctx context.Context, id string, fields map[string]any) error
}

// CartStorage is durable client-scoped key/value storage.
// Get reports existence alongside the raw value.
type CartStorage interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope, key string) error
}

// OrderEvents publishes order lifecycle events.
type OrderEvents interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
