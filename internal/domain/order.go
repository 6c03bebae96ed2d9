package domain

import "time"

// ============================================================
// Orders
// ============================================================

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPlaced         OrderStatus = "placed"
	OrderAssigned       OrderStatus = "assigned"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderFailed         OrderStatus = "failed"
	OrderCancelled      OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:         {OrderAssigned, OrderCancelled},
	OrderAssigned:       {OrderOutForDelivery, OrderDelivered, OrderFailed, OrderCancelled},
	OrderOutForDelivery: {OrderDelivered, OrderFailed},
	OrderFailed:         {OrderAssigned, OrderCancelled},
	OrderDelivered:      nil,
	OrderCancelled:      nil,
}

// Known reports whether s is one of the enumerated statuses.
func (s OrderStatus) Known() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether the table allows from -> to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderLine is a snapshot taken at submission time. It is never re-joined to live product data.
type OrderLine struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is a persisted order document.
type Order struct {
	ID                     string      `json:"id"`
	UserID                 string      `json:"userId"`
	UserEmail              string      `json:"userEmail"`
	Items                  []OrderLine `json:"items"`
	Subtotal               float64     `json:"subtotal"`
	Status                 OrderStatus `json:"status"`
	CreatedAt              time.Time   `json:"createdAt"`
	AssignedDeliveryUserID *string     `json:"assignedDeliveryUserId"`
}

// CreateOrderRequest is the input of the order workflow.
type CreateOrderRequest struct {
	Identity *Identity
	Profile  *UserProfile
	Items    []CartLine
}

// PlaceOrderRequest is the body for POST /v1/orders. Nil items means "use the cart".
type PlaceOrderRequest struct {
	Items []CartLine `json:"items"`
}

// AssignOrderRequest is the body for POST /v1/admin/orders/{orderId}/assign.
type AssignOrderRequest struct {
	DeliveryUserID string `json:"deliveryUserId"`
}

// UpdateStatusRequest is the body for POST /v1/delivery/orders/{orderId}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderEvent is published on order lifecycle changes.
type OrderEvent struct {
	Type           string      `json:"type"`
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId,omitempty"`
	Status         OrderStatus `json:"status"`
	DeliveryUserID string      `json:"deliveryUserId,omitempty"`
	Subtotal       float64     `json:"subtotal,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}

const (
	EventOrderPlaced        = "order.placed"
	EventOrderAssigned      = "order.assigned"
	EventOrderStatusChanged = "order.status_changed"
)
