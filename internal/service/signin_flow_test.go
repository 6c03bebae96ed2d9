package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/infra/cache"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newFlow(t *testing.T, profiles *mockProfileStore) (*service.SignInFlow, *service.SessionService) {
	t.Helper()
	sessions, _ := newSessions(profiles)
	pending := cache.New[*service.PendingSignIn](time.Minute)
	t.Cleanup(pending.Close)
	return service.NewSignInFlow(sessions, pending, time.Minute, zap.NewNop()), sessions
}

func TestSignInFlow_FirstLoginWaitsForRole(t *testing.T) {
	profiles := newMockProfileStore()
	flow, sessions := newFlow(t, profiles)
	ctx := context.Background()

	outcome, err := flow.Start(ctx, "google-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.PromptID == "" || outcome.Response != nil {
		t.Fatalf("expected a pending prompt, got %+v", outcome)
	}
	if profiles.creates != 0 {
		t.Error("profile must not exist before the answer")
	}

	resp, err := flow.Answer(ctx, outcome.PromptID, "Company")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Profile == nil || resp.Profile.PrimaryRole != domain.RoleCompany {
		t.Errorf("expected company profile, got %+v", resp.Profile)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token")
	}
	if _, _, err := sessions.ValidateAccessToken(resp.AccessToken); err != nil {
		t.Errorf("issued token should validate, got %v", err)
	}

	if _, err := flow.Answer(ctx, outcome.PromptID, "company"); err == nil {
		t.Error("a prompt can only be answered once")
	}
}

func TestSignInFlow_AnythingElseIsRetailer(t *testing.T) {
	flow, _ := newFlow(t, newMockProfileStore())
	ctx := context.Background()

	outcome, _ := flow.Start(ctx, "google-token")
	resp, err := flow.Answer(ctx, outcome.PromptID, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Profile.PrimaryRole != domain.RoleRetailer {
		t.Errorf("expected retailer, got %s", resp.Profile.PrimaryRole)
	}
}

func TestSignInFlow_ExistingUserCompletesImmediately(t *testing.T) {
	flow, _ := newFlow(t, newMockProfileStore(&domain.UserProfile{UID: "u1", PrimaryRole: domain.RoleRetailer}))

	outcome, err := flow.Start(context.Background(), "google-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.PromptID != "" || outcome.Response == nil {
		t.Fatalf("expected a finished sign-in, got %+v", outcome)
	}
	if outcome.Response.Identity.UID != "u1" {
		t.Errorf("expected u1, got %s", outcome.Response.Identity.UID)
	}
}

func TestSignInFlow_UnknownPrompt(t *testing.T) {
	flow, _ := newFlow(t, newMockProfileStore())

	_, err := flow.Answer(context.Background(), "missing", "company")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignInFlow_ProviderRejects(t *testing.T) {
	flow, _ := newFlow(t, newMockProfileStore())

	_, err := flow.Start(context.Background(), "forged")
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
