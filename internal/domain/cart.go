package domain

// CartLine is one entry of the client-local cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartQuantityRequest is the body for cart add / set-quantity calls.
type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}
