package domain

// ============================================================
// Catalog
// ============================================================

// Product is a catalog document. Any price may be absent.
type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Active        bool     `json:"active"`
	MSRP          *float64 `json:"msrp,omitempty"`
	PriceCompany  *float64 `json:"priceCompany,omitempty"`
	PriceRetailer *float64 `json:"priceRetailer,omitempty"`
}

// CatalogItem is a product decorated with the price for the viewing profile.
type CatalogItem struct {
	Product
	ActivePrice *float64 `json:"activePrice"`
}

// ProductInput is the body for POST /v1/admin/products.
// Nil fields are left untouched on update.
type ProductInput struct {
	ID            string   `json:"id,omitempty"`
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
	Active        *bool    `json:"active,omitempty"`
	MSRP          *float64 `json:"msrp,omitempty"`
	PriceCompany  *float64 `json:"priceCompany,omitempty"`
	PriceRetailer *float64 `json:"priceRetailer,omitempty"`
}

// ProductUpsertResponse is returned by the admin upsert.
type ProductUpsertResponse struct {
	ID string `json:"id"`
}

// Price returns a pointer to p, for literal prices.
func Price(p float64) *float64 {
	return &p
}
