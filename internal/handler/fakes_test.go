package handler_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/handler"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/cache"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/cartstore"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Fakes ---

type fakeProvider struct{}

// The id token doubles as the uid.
func (fakeProvider) SignInWithGoogle(_ context.Context, idToken string) (*domain.Identity, string, error) {
	if idToken == "" || idToken == "forged" {
		return nil, "", &domain.ErrUnauthorized{Message: "google sign-in rejected"}
	}
	return &domain.Identity{UID: idToken, Email: idToken + "@example.com"}, "provider-" + idToken, nil
}

func (fakeProvider) SignOut(context.Context, string) error { return nil }

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
	products map[string]*domain.Product
	orders   []*domain.Order

	listLimits []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*domain.UserProfile{},
		products: map[string]*domain.Product{},
	}
}

func (s *fakeStore) GetProfile(_ context.Context, uid string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[uid], nil
}

func (s *fakeStore) CreateProfile(_ context.Context, p *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UID] = p
	return nil
}

func (s *fakeStore) ListActiveProducts(_ context.Context, limit int) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listLimits = append(s.listLimits, limit)
	out := []domain.Product{}
	for _, p := range s.products {
		if p.Active && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateProduct(_ context.Context, in *domain.ProductInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("p-%d", len(s.products)+1)
	p := &domain.Product{ID: id, MSRP: in.MSRP, PriceCompany: in.PriceCompany, PriceRetailer: in.PriceRetailer}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	s.products[id] = p
	return id, nil
}

func (s *fakeStore) MergeProduct(_ context.Context, in *domain.ProductInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[in.ID]
	if !ok {
		p = &domain.Product{ID: in.ID}
		s.products[in.ID] = p
	}
	if in.Title != nil {
		p.Title = *in.Title
	}
	return nil
}

func (s *fakeStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

func (s *fakeStore) CreateOrder(_ context.Context, o *domain.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.ID = fmt.Sprintf("o-%d", len(s.orders)+1)
	s.orders = append(s.orders, &cp)
	return cp.ID, nil
}

func (s *fakeStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) list(keep func(*domain.Order) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for i := len(s.orders) - 1; i >= 0; i-- {
		if keep(s.orders[i]) {
			out = append(out, *s.orders[i])
		}
	}
	return out
}

func (s *fakeStore) ListOrdersByUser(_ context.Context, uid string) ([]domain.Order, error) {
	return s.list(func(o *domain.Order) bool { return o.UserID == uid }), nil
}

func (s *fakeStore) ListOrdersByDeliveryUser(_ context.Context, uid string) ([]domain.Order, error) {
	return s.list(func(o *domain.Order) bool {
		return o.AssignedDeliveryUserID != nil && *o.AssignedDeliveryUserID == uid
	}), nil
}

func (s *fakeStore) ListOrders(context.Context) ([]domain.Order, error) {
	return s.list(func(*domain.Order) bool { return true }), nil
}

func (s *fakeStore) MergeOrder(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID != id {
			continue
		}
		if v, ok := fields["status"].(string); ok {
			o.Status = domain.OrderStatus(v)
		}
		if v, ok := fields["assignedDeliveryUserId"].(string); ok {
			o.AssignedDeliveryUserID = &v
		}
		return nil
	}
	return &domain.ErrNotFound{Resource: "order", ID: id}
}

// newTestServices wires real services over the fake store and an in-memory cart.
func newTestServices(store *fakeStore) handler.Services {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	sessions := service.NewSessionService(fakeProvider{}, store, "test-secret", time.Hour, logger)
	return handler.Services{
		Sessions: sessions,
		SignIn:   service.NewSignInFlow(sessions, cache.New[*service.PendingSignIn](time.Minute), time.Minute, logger),
		// TTL 0 disables the profile cache so flag changes are seen at once.
		Profiles: service.NewProfileService(store, cache.New[*domain.UserProfile](0), metrics),
		Catalog:  service.NewCatalogService(store, 50, logger),
		Cart:     service.NewCartService(cartstore.NewMemory(), metrics, logger),
		Orders:   service.NewOrderService(store, store, nil, 1, metrics, logger),
		Admin:    service.NewAdminService(store, store, nil, metrics, logger),
		Delivery: service.NewDeliveryService(store, nil, false, metrics, logger),
	}
}
