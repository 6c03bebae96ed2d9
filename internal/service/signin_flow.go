package service

import (
	"context"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingSignIn is a first-time sign-in suspended on a role choice.
type PendingSignIn struct {
	request *RoleRequest
	done    <-chan signInResult
}

type signInResult struct {
	resp *domain.SignInResponse
	err  error
}

// SignInOutcome is either a finished sign-in or the id of the role prompt it waits on.
type SignInOutcome struct {
	Response *domain.SignInResponse
	PromptID string
}

// SignInFlow splits a sign-in across two requests when the user must pick a role first.
// The suspended sign-in is abandoned after ttl.
type SignInFlow struct {
	sessions *SessionService
	pending  port.Cache[*PendingSignIn]
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSignInFlow creates the two-step sign-in coordinator.
func NewSignInFlow(sessions *SessionService, pending port.Cache[*PendingSignIn], ttl time.Duration, logger *zap.Logger) *SignInFlow {
	return &SignInFlow{sessions: sessions, pending: pending, ttl: ttl, logger: logger}
}

// Start runs the sign-in until it either completes or asks for a role.
func (f *SignInFlow) Start(ctx context.Context, idToken string) (*SignInOutcome, error) {
	prompter := NewChannelPrompter()

	// The sign-in may outlive this request while it waits for the role answer.
	flowCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.ttl)
	done := make(chan signInResult, 1)

	go func() {
		defer cancel()
		resp, err := f.complete(flowCtx, idToken, prompter)
		done <- signInResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return &SignInOutcome{Response: res.resp}, nil
	case req := <-prompter.Requests():
		promptID := uuid.New().String()
		f.pending.Set(promptID, &PendingSignIn{request: req, done: done})
		f.logger.Info("sign-in waiting for role choice",
			zap.String("user_id", req.Identity.UID),
			zap.String("prompt_id", promptID),
		)
		return &SignInOutcome{PromptID: promptID}, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

// Answer resolves a role prompt and waits for the suspended sign-in to finish.
func (f *SignInFlow) Answer(ctx context.Context, promptID, answer string) (*domain.SignInResponse, error) {
	p, ok := f.pending.Get(promptID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "role prompt", ID: promptID}
	}
	f.pending.Delete(promptID)

	p.request.Respond(answer)

	select {
	case res := <-p.done:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *SignInFlow) complete(ctx context.Context, idToken string, prompter port.RolePrompter) (*domain.SignInResponse, error) {
	sess, profile, err := f.sessions.signIn(ctx, idToken, prompter)
	if err != nil {
		return nil, err
	}
	token, expiresIn, err := f.sessions.IssueToken(sess.identity, sess.id)
	if err != nil {
		return nil, err
	}
	return &domain.SignInResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		Identity:    sess.identity,
		Profile:     profile,
	}, nil
}
