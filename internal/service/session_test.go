package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"go.uber.org/zap"
)

var ada = &domain.Identity{UID: "u1", Email: "ada@example.com", DisplayName: "Ada", PhotoURL: "http://img/ada"}

func newSessions(profiles *mockProfileStore) (*service.SessionService, *mockProvider) {
	provider := &mockProvider{identities: map[string]*domain.Identity{"google-token": ada}}
	return service.NewSessionService(provider, profiles, "test-secret", time.Hour, zap.NewNop()), provider
}

func fixedRole(role domain.Role, calls *int) service.PrompterFunc {
	return func(_ context.Context, _ *domain.Identity) (domain.Role, error) {
		*calls++
		return role, nil
	}
}

func TestSignIn_FirstLoginPromptsAndCreatesProfile(t *testing.T) {
	profiles := newMockProfileStore()
	sessions, _ := newSessions(profiles)
	calls := 0

	identity, sessionID, err := sessions.SignInWithGoogleAndMaybePickRole(context.Background(), "google-token", fixedRole(domain.RoleCompany, &calls))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.UID != "u1" || sessionID == "" {
		t.Errorf("expected u1 with a session, got %s %q", identity.UID, sessionID)
	}
	if calls != 1 {
		t.Errorf("expected 1 prompt, got %d", calls)
	}

	p := profiles.profiles["u1"]
	if p == nil {
		t.Fatal("expected profile to be created")
	}
	if p.PrimaryRole != domain.RoleCompany || p.IsAdmin || p.IsDelivery {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.Email != ada.Email || p.DisplayName != ada.DisplayName || p.PhotoURL != ada.PhotoURL {
		t.Errorf("profile should copy identity fields, got %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
}

func TestSignIn_ExistingProfileIsNotRewritten(t *testing.T) {
	existing := &domain.UserProfile{UID: "u1", PrimaryRole: domain.RoleRetailer, IsAdmin: true}
	profiles := newMockProfileStore(existing)
	sessions, _ := newSessions(profiles)
	calls := 0

	if _, _, err := sessions.SignInWithGoogleAndMaybePickRole(context.Background(), "google-token", fixedRole(domain.RoleCompany, &calls)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no prompt, got %d", calls)
	}
	if profiles.creates != 0 {
		t.Errorf("expected no writes, got %d", profiles.creates)
	}
	if profiles.profiles["u1"].PrimaryRole != domain.RoleRetailer || !profiles.profiles["u1"].IsAdmin {
		t.Error("existing profile must be left untouched")
	}
}

func TestSignIn_LookupErrorCreatesNothing(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.getErr = &domain.ErrExternalService{Service: "supabase/users", Err: errors.New("timeout")}
	sessions, _ := newSessions(profiles)
	calls := 0

	_, _, err := sessions.SignInWithGoogleAndMaybePickRole(context.Background(), "google-token", fixedRole(domain.RoleCompany, &calls))
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls != 0 || profiles.creates != 0 {
		t.Errorf("expected no prompt and no write, got prompts=%d creates=%d", calls, profiles.creates)
	}
	if sessions.Current("u1") != nil {
		t.Error("expected no active session")
	}
}

func TestSignIn_ProviderErrorPropagates(t *testing.T) {
	sessions, provider := newSessions(newMockProfileStore())
	provider.signInErr = &domain.ErrExternalService{Service: "identity", Err: errors.New("popup closed")}

	_, _, err := sessions.SignInWithGoogleAndMaybePickRole(context.Background(), "google-token", nil)
	var extErr *domain.ErrExternalService
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestSignIn_PromptCancelled(t *testing.T) {
	profiles := newMockProfileStore()
	sessions, _ := newSessions(profiles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", service.NewChannelPrompter())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if profiles.creates != 0 {
		t.Error("expected no profile")
	}
}

func TestSignOut(t *testing.T) {
	sessions, provider := newSessions(newMockProfileStore(&domain.UserProfile{UID: "u1"}))
	ctx := context.Background()

	_, sessionID, _ := sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", nil)
	if sessions.Current("u1") == nil {
		t.Fatal("expected active session")
	}

	if err := sessions.SignOut(ctx, sessionID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sessions.Current("u1") != nil {
		t.Error("expected session ended")
	}
	if len(provider.signOuts) != 1 || provider.signOuts[0] != "provider-google-token" {
		t.Errorf("expected provider sign-out with stored token, got %v", provider.signOuts)
	}

	if err := sessions.SignOut(ctx, sessionID); err != nil {
		t.Errorf("second sign-out should be a no-op, got %v", err)
	}
}

func TestOnAuthChange_Transitions(t *testing.T) {
	profiles := newMockProfileStore(&domain.UserProfile{UID: "u1", PrimaryRole: domain.RoleCompany})
	sessions, _ := newSessions(profiles)
	ctx := context.Background()

	var mu sync.Mutex
	var got []domain.SessionState
	unsubscribe := sessions.OnAuthChange(ctx, "u1", func(id *domain.Identity, p *domain.UserProfile) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, domain.SessionState{Identity: id, Profile: p})
	})

	_, sessionID, _ := sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", nil)
	sessions.SignOut(ctx, sessionID)
	unsubscribe()
	sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", nil)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(got))
	}
	if got[0].Identity != nil || got[0].Profile != nil {
		t.Errorf("expected initial signed-out state, got %+v", got[0])
	}
	if got[1].Identity == nil || got[1].Profile == nil || got[1].Profile.PrimaryRole != domain.RoleCompany {
		t.Errorf("expected signed-in state with profile, got %+v", got[1])
	}
	if got[2].Identity != nil || got[2].Profile != nil {
		t.Errorf("expected signed-out state, got %+v", got[2])
	}
}

func TestOnAuthChange_ProfileReadErrorSkipsTransition(t *testing.T) {
	profiles := newMockProfileStore(&domain.UserProfile{UID: "u1"})
	sessions, _ := newSessions(profiles)
	ctx := context.Background()

	sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", nil)
	profiles.getErr = errors.New("store down")

	calls := 0
	sessions.OnAuthChange(ctx, "u1", func(*domain.Identity, *domain.UserProfile) { calls++ })
	if calls != 0 {
		t.Errorf("expected transition to be dropped, got %d calls", calls)
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	sessions, _ := newSessions(newMockProfileStore(&domain.UserProfile{UID: "u1"}))
	ctx := context.Background()
	identity, sessionID, _ := sessions.SignInWithGoogleAndMaybePickRole(ctx, "google-token", nil)

	token, expiresIn, err := sessions.IssueToken(identity, sessionID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if expiresIn != 3600 {
		t.Errorf("expected 3600s, got %d", expiresIn)
	}

	got, gotSession, err := sessions.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if got.UID != "u1" || gotSession != sessionID {
		t.Errorf("expected u1 in %s, got %s in %s", sessionID, got.UID, gotSession)
	}

	sessions.SignOut(ctx, sessionID)
	if _, _, err := sessions.ValidateAccessToken(token); err == nil {
		t.Error("expected token to be rejected after sign-out")
	}
}

func TestSignOut_EndsOnlyThatBrowser(t *testing.T) {
	profiles := newMockProfileStore(&domain.UserProfile{UID: "u1"})
	provider := &mockProvider{identities: map[string]*domain.Identity{"tok-laptop": ada, "tok-phone": ada}}
	sessions := service.NewSessionService(provider, profiles, "test-secret", time.Hour, zap.NewNop())
	ctx := context.Background()

	var transitions []*domain.Identity
	sessions.OnAuthChange(ctx, "u1", func(id *domain.Identity, _ *domain.UserProfile) {
		transitions = append(transitions, id)
	})

	laptop, laptopSession, _ := sessions.SignInWithGoogleAndMaybePickRole(ctx, "tok-laptop", nil)
	phone, phoneSession, _ := sessions.SignInWithGoogleAndMaybePickRole(ctx, "tok-phone", nil)
	if laptopSession == phoneSession {
		t.Fatal("each sign-in must open its own session")
	}
	laptopToken, _, _ := sessions.IssueToken(laptop, laptopSession)
	phoneToken, _, _ := sessions.IssueToken(phone, phoneSession)

	if err := sessions.SignOut(ctx, phoneSession); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, _, err := sessions.ValidateAccessToken(laptopToken); err != nil {
		t.Errorf("laptop token should survive the phone sign-out, got %v", err)
	}
	if _, _, err := sessions.ValidateAccessToken(phoneToken); err == nil {
		t.Error("expected phone token to be rejected")
	}
	if len(provider.signOuts) != 1 || provider.signOuts[0] != "provider-tok-phone" {
		t.Errorf("expected only the phone provider token revoked, got %v", provider.signOuts)
	}
	if sessions.Current("u1") == nil {
		t.Error("user is still signed in on the laptop")
	}
	// initial, laptop in, phone in; no signed-out while the laptop remains
	if len(transitions) != 3 || transitions[2] == nil {
		t.Fatalf("expected no signed-out transition yet, got %v", transitions)
	}

	sessions.SignOut(ctx, laptopSession)
	if len(transitions) != 4 || transitions[3] != nil {
		t.Errorf("expected signed-out after the last session ends, got %v", transitions)
	}
	if len(provider.signOuts) != 2 || provider.signOuts[1] != "provider-tok-laptop" {
		t.Errorf("expected laptop provider token revoked, got %v", provider.signOuts)
	}
}

func TestAccessToken_RejectsGarbage(t *testing.T) {
	sessions, _ := newSessions(newMockProfileStore())

	_, _, err := sessions.ValidateAccessToken("not-a-jwt")
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]domain.Role{
		"company":    domain.RoleCompany,
		"COMPANY":    domain.RoleCompany,
		" Company ":  domain.RoleCompany,
		"retailer":   domain.RoleRetailer,
		"":           domain.RoleRetailer,
		"companies":  domain.RoleRetailer,
		"wholesaler": domain.RoleRetailer,
	}
	for answer, want := range tests {
		if got := domain.ParseRole(answer); got != want {
			t.Errorf("ParseRole(%q) = %s, want %s", answer, got, want)
		}
	}
}
