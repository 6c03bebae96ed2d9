package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProductStore implementation: products table
// ============================================================

type productRow struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ImageURL      string   `json:"image_url"`
	Active        bool     `json:"active"`
	MSRP          *float64 `json:"msrp"`
	PriceCompany  *float64 `json:"price_company"`
	PriceRetailer *float64 `json:"price_retailer"`
}

func (r *productRow) toDomain() domain.Product {
	return domain.Product{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		ImageURL:      r.ImageURL,
		Active:        r.Active,
		MSRP:          r.MSRP,
		PriceCompany:  r.PriceCompany,
		PriceRetailer: r.PriceRetailer,
	}
}

// productColumns returns only the fields set on input, keyed by column name.
func productColumns(input *domain.ProductInput) map[string]any {
	cols := map[string]any{}
	if input.Title != nil {
		cols["title"] = *input.Title
	}
	if input.Description != nil {
		cols["description"] = *input.Description
	}
	if input.ImageURL != nil {
		cols["image_url"] = *input.ImageURL
	}
	if input.Active != nil {
		cols["active"] = *input.Active
	}
	if input.MSRP != nil {
		cols["msrp"] = *input.MSRP
	}
	if input.PriceCompany != nil {
		cols["price_company"] = *input.PriceCompany
	}
	if input.PriceRetailer != nil {
		cols["price_retailer"] = *input.PriceRetailer
	}
	return cols
}

// ListActiveProducts returns up to limit products with active = true, in server order.
func (c *Client) ListActiveProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActiveProducts")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	products := []domain.Product{}
	err := c.call(ctx, "products", func(ctx context.Context) error {
		var rows []productRow
		found, err := c.getRows(ctx, fmt.Sprintf("products?active=eq.true&limit=%d", limit), &rows)
		if err != nil || !found {
			return err
		}
		products = make([]domain.Product, 0, len(rows))
		for i := range rows {
			products = append(products, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns the product with id, or nil, nil when absent.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var product *domain.Product
	err := c.call(ctx, "products", func(ctx context.Context) error {
		var rows []productRow
		found, err := c.getRows(ctx, fmt.Sprintf("products?id=eq.%s&limit=1", url.QueryEscape(id)), &rows)
		if err != nil || !found || len(rows) == 0 {
			return err
		}
		p := rows[0].toDomain()
		product = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// CreateProduct inserts a new product with a generated id.
func (c *Client) CreateProduct(ctx context.Context, input *domain.ProductInput) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProduct")
	defer span.End()

	id := uuid.New().String()
	row := productColumns(input)
	row["id"] = id
	span.SetAttributes(attribute.String("product.id", id))

	err := c.call(ctx, "products", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, "products", row, "return=minimal")
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// MergeProduct upserts only the fields set on input; other columns keep their values.
func (c *Client) MergeProduct(ctx context.Context, input *domain.ProductInput) error {
	ctx, span := tracer.Start(ctx, "Supabase.MergeProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", input.ID))

	row := productColumns(input)
	row["id"] = input.ID

	return c.call(ctx, "products", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, "products?on_conflict=id", row, "resolution=merge-duplicates,return=minimal")
		return err
	})
}

// DeleteProduct removes the product row.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	return c.call(ctx, "products", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("products?id=eq.%s", url.QueryEscape(id)), nil, "")
		return err
	})
}
