package service

import (
	"context"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
)

// RoleRequest is a pending "choose your role" question for a first-time user.
type RoleRequest struct {
	Identity *domain.Identity
	answer   chan domain.Role
}

// Respond resolves the request. The answer is matched like the text prompt:
// "company" in any case picks company, anything else picks retailer. Extra calls are ignored.
func (r *RoleRequest) Respond(answer string) {
	select {
	case r.answer <- domain.ParseRole(answer):
	default:
	}
}

// ChannelPrompter publishes role requests on a channel and suspends the caller until answered.
type ChannelPrompter struct {
	requests chan *RoleRequest
}

// NewChannelPrompter creates a prompter whose requests are read from Requests.
func NewChannelPrompter() *ChannelPrompter {
	return &ChannelPrompter{requests: make(chan *RoleRequest, 1)}
}

// Requests is the stream of role questions to show to the user.
func (p *ChannelPrompter) Requests() <-chan *RoleRequest {
	return p.requests
}

// PromptRole implements port.RolePrompter.
func (p *ChannelPrompter) PromptRole(ctx context.Context, identity *domain.Identity) (domain.Role, error) {
	req := &RoleRequest{Identity: identity, answer: make(chan domain.Role, 1)}

	select {
	case p.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case role := <-req.answer:
		return role, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// PrompterFunc adapts a function to port.RolePrompter.
type PrompterFunc func(ctx context.Context, identity *domain.Identity) (domain.Role, error)

// PromptRole implements port.RolePrompter.
func (f PrompterFunc) PromptRole(ctx context.Context, identity *domain.Identity) (domain.Role, error) {
	return f(ctx, identity)
}
