package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/boddenberg/storefront-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// 1. Auth
// ============================================================

func googleSignInHandler(flow *service.SignInFlow, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/google")
		defer span.End()

		var req domain.GoogleSignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.IDToken == "" {
			writeError(w, http.StatusBadRequest, "idToken is required")
			return
		}

		outcome, err := flow.Start(ctx, req.IDToken)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if outcome.PromptID != "" {
			writeJSON(w, http.StatusAccepted, domain.RolePromptResponse{
				Status:   "role_required",
				PromptID: outcome.PromptID,
				Choices:  []string{string(domain.RoleRetailer), string(domain.RoleCompany)},
			})
			return
		}
		writeJSON(w, http.StatusOK, outcome.Response)
	}
}

func rolePromptAnswerHandler(flow *service.SignInFlow, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/role-prompts/{promptId}")
		defer span.End()

		var req domain.RoleAnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := flow.Answer(ctx, chi.URLParam(r, "promptId"), req.Role)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func logoutHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		if err := sessions.SignOut(ctx, SessionIDFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(profiles *service.ProfileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me")
		defer span.End()

		identity := IdentityFromContext(ctx)
		profile, err := profiles.GetProfile(ctx, identity.UID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionState{Identity: identity, Profile: profile})
	}
}

// authEventsHandler streams auth transitions of the caller as server-sent events.
// The stream ends after the sign-out event.
func authEventsHandler(sessions *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		ctx := r.Context()
		identity := IdentityFromContext(ctx)

		states := make(chan domain.SessionState, 8)
		unsubscribe := sessions.OnAuthChange(ctx, identity.UID, func(id *domain.Identity, p *domain.UserProfile) {
			select {
			case states <- domain.SessionState{Identity: id, Profile: p}:
			default:
				logger.Warn("auth events: subscriber too slow, dropping transition",
					zap.String("user_id", identity.UID),
				)
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case state := <-states:
				data, err := json.Marshal(state)
				if err != nil {
					logger.Error("auth events: encode failed", zap.Error(err))
					return
				}
				fmt.Fprintf(w, "event: auth\ndata: %s\n\n", data)
				flusher.Flush()
				if state.Identity == nil {
					return
				}
			}
		}
	}
}
