package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/port"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newAdmin(products *mockProductStore, orders *mockOrderStore, events port.OrderEvents) *service.AdminService {
	return service.NewAdminService(products, orders, events, observability.NewMetrics(), zap.NewNop())
}

func TestUpsertProduct_WithIDMerges(t *testing.T) {
	products := newMockProductStore()
	svc := newAdmin(products, newMockOrderStore(), nil)

	title := "Renamed"
	id, err := svc.UpsertProduct(context.Background(), &domain.ProductInput{ID: "p1", Title: &title})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "p1" {
		t.Errorf("expected id p1, got %s", id)
	}
	if len(products.merged) != 1 || len(products.created) != 0 {
		t.Errorf("expected one merge and no create, got %d/%d", len(products.merged), len(products.created))
	}
}

func TestUpsertProduct_WithoutIDCreates(t *testing.T) {
	products := newMockProductStore()
	svc := newAdmin(products, newMockOrderStore(), nil)

	id, err := svc.UpsertProduct(context.Background(), &domain.ProductInput{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id == "" || len(products.created) != 1 {
		t.Errorf("expected a created product, got id=%q creates=%d", id, len(products.created))
	}
}

func TestDeleteProduct(t *testing.T) {
	products := newMockProductStore(domain.Product{ID: "p1"})
	svc := newAdmin(products, newMockOrderStore(), nil)

	if err := svc.DeleteProduct(context.Background(), "p1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := products.products["p1"]; ok {
		t.Error("expected product removed")
	}
}

func TestAssignOrder_OverridesAnyStatus(t *testing.T) {
	orders := newMockOrderStore(domain.Order{ID: "o1", UserID: "u1", Status: domain.OrderDelivered})
	events := &mockEvents{}
	svc := newAdmin(newMockProductStore(), orders, events)

	if err := svc.AssignOrder(context.Background(), "o1", "d1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	o := orders.orders["o1"]
	if o.Status != domain.OrderAssigned {
		t.Errorf("expected status assigned, got %s", o.Status)
	}
	if o.AssignedDeliveryUserID == nil || *o.AssignedDeliveryUserID != "d1" {
		t.Errorf("expected delivery user d1, got %v", o.AssignedDeliveryUserID)
	}
	if len(orders.merges) != 1 || len(orders.merges[0]) != 2 {
		t.Errorf("expected a single two-field write, got %+v", orders.merges)
	}
	if len(events.events) != 1 || events.events[0].Type != domain.EventOrderAssigned {
		t.Errorf("expected order.assigned event, got %+v", events.events)
	}
}

func TestAssignOrder_RequiresDeliveryUser(t *testing.T) {
	orders := newMockOrderStore()
	svc := newAdmin(newMockProductStore(), orders, nil)

	err := svc.AssignOrder(context.Background(), "o1", "")
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(orders.merges) != 0 {
		t.Error("expected no write")
	}
}

func TestAssignOrder_UnknownOrderPublishesNothing(t *testing.T) {
	events := &mockEvents{}
	svc := newAdmin(newMockProductStore(), newMockOrderStore(), events)

	err := svc.AssignOrder(context.Background(), "ghost", "d1")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(events.events) != 0 {
		t.Errorf("expected no event, got %+v", events.events)
	}
}
