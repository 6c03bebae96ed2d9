// Package service: SessionService adapts the identity provider: sign-in with
// first-login profile creation, sign-out, auth-change subscriptions and session tokens.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

const tokenIssuer = "storefront-bfa"

// AuthChangeFunc receives (identity, profile) on every auth transition; both are nil after sign-out.
type AuthChangeFunc func(identity *domain.Identity, profile *domain.UserProfile)

// session is one signed-in browser. A user may hold several at once.
type session struct {
	id            string
	identity      *domain.Identity
	providerToken string
}

// SessionService is the single identity adapter of the process.
type SessionService struct {
	provider  port.IdentityProvider
	profiles  port.ProfileStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	active  map[string]*session // by session id
	subs    map[string]map[int]AuthChangeFunc
	nextSub int
}

// NewSessionService creates the identity adapter.
func NewSessionService(provider port.IdentityProvider, profiles port.ProfileStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		provider:  provider,
		profiles:  profiles,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
		now:       time.Now,
		active:    make(map[string]*session),
		subs:      make(map[string]map[int]AuthChangeFunc),
	}
}

// ============================================================
// Sign-in / sign-out
// ============================================================

// SignInWithGoogleAndMaybePickRole signs the user in with the provider. On first login
// (no profile document) it suspends on prompter for a role and then creates the profile.
// An existing profile is never rewritten. Every call opens a new session, returned by id;
// sessions of the same user on other browsers are left alone.
func (s *SessionService) SignInWithGoogleAndMaybePickRole(ctx context.Context, idToken string, prompter port.RolePrompter) (*domain.Identity, string, error) {
	sess, _, err := s.signIn(ctx, idToken, prompter)
	if err != nil {
		return nil, "", err
	}
	return sess.identity, sess.id, nil
}

func (s *SessionService) signIn(ctx context.Context, idToken string, prompter port.RolePrompter) (*session, *domain.UserProfile, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionService.SignIn")
	defer span.End()

	identity, providerToken, err := s.provider.SignInWithGoogle(ctx, idToken)
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("user.id", identity.UID))

	profile, err := s.profiles.GetProfile(ctx, identity.UID)
	if err != nil {
		return nil, nil, err
	}

	if profile == nil {
		if prompter == nil {
			return nil, nil, &domain.ErrValidation{Field: "role", Message: "first sign-in requires a role choice"}
		}
		role, err := prompter.PromptRole(ctx, identity)
		if err != nil {
			return nil, nil, fmt.Errorf("role prompt: %w", err)
		}

		profile = domain.NewUserProfile(identity, role, s.now().UTC())
		if err := s.profiles.CreateProfile(ctx, profile); err != nil {
			return nil, nil, err
		}
		s.logger.Info("profile created",
			zap.String("user_id", identity.UID),
			zap.String("primary_role", string(role)),
		)
	}

	sess := &session{id: uuid.New().String(), identity: identity, providerToken: providerToken}
	s.mu.Lock()
	s.active[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("user signed in",
		zap.String("user_id", identity.UID),
		zap.String("session_id", sess.id),
	)
	s.notify(ctx, identity.UID, identity)

	return sess, profile, nil
}

// SignOut ends one session and revokes its provider token. Other sessions of the
// same user stay valid. Signing out twice is a no-op.
func (s *SessionService) SignOut(ctx context.Context, sessionID string) error {
	ctx, span := sessionTracer.Start(ctx, "SessionService.SignOut")
	defer span.End()

	s.mu.Lock()
	sess, ok := s.active[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	uid := sess.identity.UID
	span.SetAttributes(attribute.String("user.id", uid))

	if err := s.provider.SignOut(ctx, sess.providerToken); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.active, sessionID)
	remaining := s.currentLocked(uid)
	s.mu.Unlock()

	s.logger.Info("user signed out",
		zap.String("user_id", uid),
		zap.String("session_id", sessionID),
	)
	// Subscribers follow the user: they see signed-out once the last session ends.
	if remaining == nil {
		s.notify(ctx, uid, nil)
	}
	return nil
}

// Current returns the identity of uid when any of its sessions is active, or nil.
func (s *SessionService) Current(uid string) *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(uid)
}

func (s *SessionService) currentLocked(uid string) *domain.Identity {
	for _, sess := range s.active {
		if sess.identity.UID == uid {
			return sess.identity
		}
	}
	return nil
}

// ============================================================
// Auth change subscriptions
// ============================================================

// OnAuthChange subscribes fn to auth transitions of uid. fn is called right away with the
// current state, then after every sign-in and after the sign-out that ends the last session.
// Call the returned func to unsubscribe.
func (s *SessionService) OnAuthChange(ctx context.Context, uid string, fn AuthChangeFunc) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[uid] == nil {
		s.subs[uid] = make(map[int]AuthChangeFunc)
	}
	s.subs[uid][id] = fn
	current := s.currentLocked(uid)
	s.mu.Unlock()

	s.deliver(ctx, uid, current, []AuthChangeFunc{fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[uid], id)
		if len(s.subs[uid]) == 0 {
			delete(s.subs, uid)
		}
	}
}

func (s *SessionService) notify(ctx context.Context, uid string, identity *domain.Identity) {
	s.mu.Lock()
	fns := make([]AuthChangeFunc, 0, len(s.subs[uid]))
	for _, fn := range s.subs[uid] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	s.deliver(ctx, uid, identity, fns)
}

// deliver reads the profile once per transition and hands the pair to fns.
func (s *SessionService) deliver(ctx context.Context, uid string, identity *domain.Identity, fns []AuthChangeFunc) {
	var profile *domain.UserProfile
	if identity != nil {
		p, err := s.profiles.GetProfile(ctx, uid)
		if err != nil {
			s.logger.Error("auth change: profile read failed",
				zap.String("user_id", uid),
				zap.Error(err),
			)
			return
		}
		profile = p
	}
	for _, fn := range fns {
		fn(identity, profile)
	}
}

// ============================================================
// Session tokens
// ============================================================

// SessionClaims are the claims of the access token handed to clients.
type SessionClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for identity bound to sessionID (the jti claim).
// It returns the token and its lifetime in seconds.
func (s *SessionService) IssueToken(identity *domain.Identity, sessionID string) (string, int, error) {
	now := s.now()
	claims := SessionClaims{
		Sub:   identity.UID,
		Email: identity.Email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(s.accessTTL.Seconds()), nil
}

// ValidateAccessToken parses tokenString and returns the identity and id of its live session.
func (s *SessionService) ValidateAccessToken(tokenString string) (*domain.Identity, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, "", &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, "", &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	s.mu.Lock()
	sess, ok := s.active[claims.ID]
	s.mu.Unlock()
	if !ok || sess.identity.UID != claims.Sub {
		return nil, "", &domain.ErrUnauthorized{Message: "session ended"}
	}
	return sess.identity, sess.id, nil
}
