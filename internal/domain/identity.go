package domain

import (
	"strings"
	"time"
)

// ============================================================
// Identity / Profile
// ============================================================

// Identity is the user as reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Role is the commercial classification that selects a price tier.
type Role string

const (
	RoleRetailer Role = "retailer"
	RoleCompany  Role = "company"
)

// ParseRole maps a free-text answer to a role.
// Only "company" (any case) selects the company tier; everything else is retailer.
func ParseRole(answer string) Role {
	if strings.EqualFold(strings.TrimSpace(answer), string(RoleCompany)) {
		return RoleCompany
	}
	return RoleRetailer
}

// UserProfile is the per-identity document in the users collection.
// Written once at first sign-in; admin and delivery flags are managed out of band.
type UserProfile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	CreatedAt   time.Time `json:"createdAt"`
	PrimaryRole Role      `json:"primaryRole"`
	IsAdmin     bool      `json:"isAdmin"`
	IsDelivery  bool      `json:"isDelivery"`
}

// NewUserProfile builds the first-login profile for an identity.
func NewUserProfile(id *Identity, role Role, now time.Time) *UserProfile {
	return &UserProfile{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		CreatedAt:   now,
		PrimaryRole: role,
	}
}

// ============================================================
// Auth: Request / Response types
// ============================================================

// GoogleSignInRequest is the body for POST /v1/auth/google.
type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

// RoleAnswerRequest is the body for POST /v1/auth/role-prompts/{promptId}.
type RoleAnswerRequest struct {
	Role string `json:"role"`
}

// SignInResponse is returned once a sign-in completes.
type SignInResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int          `json:"expiresIn"`
	Identity    *Identity    `json:"identity"`
	Profile     *UserProfile `json:"profile"`
}

// RolePromptResponse is returned (202) while a first sign-in waits for a role.
type RolePromptResponse struct {
	Status   string   `json:"status"`
	PromptID string   `json:"promptId"`
	Choices  []string `json:"choices"`
}

// SessionState is one auth transition as seen by a client.
type SessionState struct {
	Identity *Identity    `json:"identity"`
	Profile  *UserProfile `json:"profile"`
}
