package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// OrderStore implementation: orders table
// ============================================================

type orderRow struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"user_id"`
	UserEmail              string             `json:"user_email"`
	Items                  []domain.OrderLine `json:"items"`
	Subtotal               float64            `json:"subtotal"`
	Status                 string             `json:"status"`
	CreatedAt              time.Time          `json:"created_at"`
	AssignedDeliveryUserID *string            `json:"assigned_delivery_user_id"`
}

func (r *orderRow) toDomain() domain.Order {
	items := r.Items
	if items == nil {
		items = []domain.OrderLine{}
	}
	return domain.Order{
		ID:                     r.ID,
		UserID:                 r.UserID,
		UserEmail:              r.UserEmail,
		Items:                  items,
		Subtotal:               r.Subtotal,
		Status:                 domain.OrderStatus(r.Status),
		CreatedAt:              r.CreatedAt,
		AssignedDeliveryUserID: r.AssignedDeliveryUserID,
	}
}

// orderColumns maps the document field names used by services to table columns.
var orderColumns = map[string]string{
	"status":                 "status",
	"assignedDeliveryUserId": "assigned_delivery_user_id",
}

const orderSelect = "select=id,user_id,user_email,items,subtotal,status,created_at,assigned_delivery_user_id"

// CreateOrder inserts the order snapshot and returns its generated id.
func (c *Client) CreateOrder(ctx context.Context, order *domain.Order) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateOrder")
	defer span.End()

	id := uuid.New().String()
	span.SetAttributes(attribute.String("order.id", id))

	row := orderRow{
		ID:                     id,
		UserID:                 order.UserID,
		UserEmail:              order.UserEmail,
		Items:                  order.Items,
		Subtotal:               order.Subtotal,
		Status:                 string(order.Status),
		CreatedAt:              order.CreatedAt,
		AssignedDeliveryUserID: order.AssignedDeliveryUserID,
	}
	if row.Items == nil {
		row.Items = []domain.OrderLine{}
	}

	err := c.call(ctx, "orders", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, "orders", row, "return=minimal")
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetOrder returns the order with id, or nil, nil when absent.
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	orders, err := c.listOrders(ctx, fmt.Sprintf("orders?%s&id=eq.%s&limit=1", orderSelect, url.QueryEscape(id)))
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByUser returns the orders of uid, newest first.
func (c *Client) ListOrdersByUser(ctx context.Context, uid string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrdersByUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	return c.listOrders(ctx, fmt.Sprintf("orders?%s&user_id=eq.%s&order=created_at.desc", orderSelect, url.QueryEscape(uid)))
}

// ListOrdersByDeliveryUser returns the orders assigned to deliveryUID, newest first.
func (c *Client) ListOrdersByDeliveryUser(ctx context.Context, deliveryUID string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrdersByDeliveryUser")
	defer span.End()
	span.SetAttributes(attribute.String("delivery.user_id", deliveryUID))

	return c.listOrders(ctx, fmt.Sprintf("orders?%s&assigned_delivery_user_id=eq.%s&order=created_at.desc", orderSelect, url.QueryEscape(deliveryUID)))
}

// ListOrders returns every order, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrders")
	defer span.End()

	return c.listOrders(ctx, fmt.Sprintf("orders?%s&order=created_at.desc", orderSelect))
}

func (c *Client) listOrders(ctx context.Context, path string) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := c.call(ctx, "orders", func(ctx context.Context) error {
		var rows []orderRow
		found, err := c.getRows(ctx, path, &rows)
		if err != nil || !found {
			return err
		}
		orders = make([]domain.Order, 0, len(rows))
		for i := range rows {
			orders = append(orders, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MergeOrder updates only the given fields of the order.
// A PATCH that matches no row returns ErrNotFound.
func (c *Client) MergeOrder(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.MergeOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	row := make(map[string]any, len(fields))
	for field, v := range fields {
		col, ok := orderColumns[field]
		if !ok {
			return &domain.ErrValidation{Field: field, Message: "not a mutable order field"}
		}
		row[col] = v
	}

	var body []byte
	err := c.call(ctx, "orders", func(ctx context.Context) error {
		b, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("orders?id=eq.%s&select=id", url.QueryEscape(id)), row, "return=representation")
		body = b
		return err
	})
	if err != nil {
		return err
	}

	var updated []json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &updated); err != nil {
			return &domain.ErrExternalService{Service: "supabase/orders", Err: fmt.Errorf("decode patch result: %w", err)}
		}
	}
	if len(updated) == 0 {
		return &domain.ErrNotFound{Resource: "order", ID: id}
	}
	return nil
}
