package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProfileStore implementation: users table
// ============================================================

type userRow struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	PrimaryRole string    `json:"primary_role"`
	IsAdmin     bool      `json:"is_admin"`
	IsDelivery  bool      `json:"is_delivery"`
}

func (r *userRow) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UID:         r.UID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		CreatedAt:   r.CreatedAt,
		PrimaryRole: domain.Role(r.PrimaryRole),
		IsAdmin:     r.IsAdmin,
		IsDelivery:  r.IsDelivery,
	}
}

// GetProfile returns the users document for uid, or nil, nil when absent.
func (c *Client) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	var profile *domain.UserProfile
	err := c.call(ctx, "users", func(ctx context.Context) error {
		var rows []userRow
		found, err := c.getRows(ctx, fmt.Sprintf("users?uid=eq.%s&limit=1", url.QueryEscape(uid)), &rows)
		if err != nil || !found || len(rows) == 0 {
			return err
		}
		profile = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProfile writes the first-login profile document.
func (c *Client) CreateProfile(ctx context.Context, profile *domain.UserProfile) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", profile.UID))

	row := map[string]any{
		"uid":          profile.UID,
		"email":        profile.Email,
		"display_name": profile.DisplayName,
		"photo_url":    profile.PhotoURL,
		"created_at":   profile.CreatedAt.Format(time.RFC3339Nano),
		"primary_role": string(profile.PrimaryRole),
		"is_admin":     profile.IsAdmin,
		"is_delivery":  profile.IsDelivery,
	}

	return c.call(ctx, "users", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, "users", row, "return=minimal")
		return err
	})
}
