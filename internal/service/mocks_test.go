package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
)

// --- Mocks ---

type mockProvider struct {
	identities map[string]*domain.Identity // keyed by id token
	signInErr  error
	signOutErr error

	mu       sync.Mutex
	signOuts []string
}

func (m *mockProvider) SignInWithGoogle(_ context.Context, idToken string) (*domain.Identity, string, error) {
	if m.signInErr != nil {
		return nil, "", m.signInErr
	}
	id, ok := m.identities[idToken]
	if !ok {
		return nil, "", &domain.ErrUnauthorized{Message: "unknown token"}
	}
	cp := *id
	return &cp, "provider-" + idToken, nil
}

func (m *mockProvider) SignOut(_ context.Context, providerToken string) error {
	if m.signOutErr != nil {
		return m.signOutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOuts = append(m.signOuts, providerToken)
	return nil
}

type mockProfileStore struct {
	mu        sync.Mutex
	profiles  map[string]*domain.UserProfile
	getErr    error
	createErr error
	gets      int
	creates   int
}

func newMockProfileStore(profiles ...*domain.UserProfile) *mockProfileStore {
	m := &mockProfileStore{profiles: map[string]*domain.UserProfile{}}
	for _, p := range profiles {
		m.profiles[p.UID] = p
	}
	return m
}

func (m *mockProfileStore) GetProfile(_ context.Context, uid string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[uid], nil
}

func (m *mockProfileStore) CreateProfile(_ context.Context, p *domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	m.profiles[p.UID] = p
	return nil
}

type mockProductStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	getErr   error
	merged   []*domain.ProductInput
	created  []*domain.ProductInput
	deleted  []string
}

func newMockProductStore(products ...domain.Product) *mockProductStore {
	m := &mockProductStore{products: map[string]*domain.Product{}}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *mockProductStore) ListActiveProducts(_ context.Context, limit int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Product{}
	for _, p := range m.products {
		if p.Active && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductStore) CreateProduct(_ context.Context, input *domain.ProductInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, input)
	return fmt.Sprintf("new-%d", len(m.created)), nil
}

func (m *mockProductStore) MergeProduct(_ context.Context, input *domain.ProductInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merged = append(m.merged, input)
	return nil
}

func (m *mockProductStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.products, id)
	return nil
}

type mockOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	createErr error
	merges    []map[string]any
	seq       int
}

func newMockOrderStore(orders ...domain.Order) *mockOrderStore {
	m := &mockOrderStore{orders: map[string]*domain.Order{}}
	for i := range orders {
		o := orders[i]
		m.orders[o.ID] = &o
	}
	return m
}

func (m *mockOrderStore) CreateOrder(_ context.Context, o *domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.seq++
	id := fmt.Sprintf("order-%d", m.seq)
	cp := *o
	cp.ID = id
	m.orders[id] = &cp
	return id, nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderStore) filter(keep func(*domain.Order) bool) []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	return out
}

func (m *mockOrderStore) ListOrdersByUser(_ context.Context, uid string) ([]domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.UserID == uid }), nil
}

func (m *mockOrderStore) ListOrdersByDeliveryUser(_ context.Context, uid string) ([]domain.Order, error) {
	return m.filter(func(o *domain.Order) bool {
		return o.AssignedDeliveryUserID != nil && *o.AssignedDeliveryUserID == uid
	}), nil
}

func (m *mockOrderStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	return m.filter(func(*domain.Order) bool { return true }), nil
}

func (m *mockOrderStore) MergeOrder(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merges = append(m.merges, fields)
	o, ok := m.orders[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "order", ID: id}
	}
	if v, ok := fields["status"].(string); ok {
		o.Status = domain.OrderStatus(v)
	}
	if v, ok := fields["assignedDeliveryUserId"].(string); ok {
		o.AssignedDeliveryUserID = &v
	}
	return nil
}

type mockEvents struct {
	mu     sync.Mutex
	events []*domain.OrderEvent
	err    error
}

func (m *mockEvents) Publish(_ context.Context, e *domain.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type mockCartStorage struct {
	data   map[string]string
	getErr error
	sets   int
}

func newMockCartStorage() *mockCartStorage {
	return &mockCartStorage{data: map[string]string{}}
}

func (m *mockCartStorage) Get(_ context.Context, scope, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[scope+"/"+key]
	return v, ok, nil
}

func (m *mockCartStorage) Set(_ context.Context, scope, key, value string) error {
	m.sets++
	m.data[scope+"/"+key] = value
	return nil
}

func (m *mockCartStorage) Delete(_ context.Context, scope, key string) error {
	delete(m.data, scope+"/"+key)
	return nil
}
