// Package client holds HTTP clients for external services other than the document store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/observability"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// IdentityClient exchanges Google ID tokens for sessions on Supabase Auth (GoTrue).
type IdentityClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	guard      *resilience.Guard
	metrics    *observability.Metrics
}

// NewIdentityClient creates a new IdentityClient.
func NewIdentityClient(httpClient *http.Client, baseURL, apiKey string, guard *resilience.Guard, metrics *observability.Metrics) *IdentityClient {
	return &IdentityClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		guard:      guard,
		metrics:    metrics,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			FullName  string `json:"full_name"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatar_url"`
			Picture   string `json:"picture"`
		} `json:"user_metadata"`
	} `json:"user"`
}

// SignInWithGoogle runs the id_token grant and returns the resulting identity plus the
// provider access token needed for sign-out.
func (c *IdentityClient) SignInWithGoogle(ctx context.Context, idToken string) (*domain.Identity, string, error) {
	ctx, span := tracer.Start(ctx, "IdentityClient.SignInWithGoogle")
	defer span.End()

	if idToken == "" {
		return nil, "", &domain.ErrValidation{Field: "idToken", Message: "required"}
	}

	var tok tokenResponse
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		payload, _ := json.Marshal(map[string]string{"provider": "google", "id_token": idToken})
		url := fmt.Sprintf("%s/auth/v1/token?grant_type=id_token", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
			return resilience.Permanent(&domain.ErrUnauthorized{Message: "google sign-in rejected"})
		case resp.StatusCode != http.StatusOK:
			statusErr := fmt.Errorf("auth API returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode < 500 {
				return resilience.Permanent(statusErr)
			}
			return statusErr
		}
		return json.Unmarshal(body, &tok)
	})
	if err != nil {
		var unauth *domain.ErrUnauthorized
		if errors.As(err, &unauth) {
			return nil, "", unauth
		}
		c.metrics.IncrExternalError("identity")
		return nil, "", &domain.ErrExternalService{Service: "identity", Err: err}
	}

	span.SetAttributes(attribute.String("user.id", tok.User.ID))

	meta := tok.User.UserMetadata
	identity := &domain.Identity{
		UID:         tok.User.ID,
		Email:       tok.User.Email,
		DisplayName: firstNonEmpty(meta.FullName, meta.Name),
		PhotoURL:    firstNonEmpty(meta.AvatarURL, meta.Picture),
	}
	return identity, tok.AccessToken, nil
}

// SignOut revokes the provider session.
func (c *IdentityClient) SignOut(ctx context.Context, providerToken string) error {
	ctx, span := tracer.Start(ctx, "IdentityClient.SignOut")
	defer span.End()

	err := c.guard.Do(ctx, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/auth/v1/logout", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+providerToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		// An expired provider session is already signed out.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := fmt.Errorf("auth API returned status %d", resp.StatusCode)
			if resp.StatusCode < 500 {
				return resilience.Permanent(statusErr)
			}
			return statusErr
		}
		return nil
	})
	if err != nil {
		c.metrics.IncrExternalError("identity")
		return &domain.ErrExternalService{Service: "identity", Err: err}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
