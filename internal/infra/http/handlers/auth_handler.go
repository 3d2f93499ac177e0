package handlers

import (
	"context"
	"net/http"

	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

type Authorizer interface {
	ConnectURL(state string) string
	CompleteAuthorization(ctx context.Context, code string) (*usecase.AuthorizationResult, error)
}

type AuthHandler struct {
	Tokens Authorizer
	State  *StateSigner
	Logger *zap.Logger
}

func NewAuthHandler(tokens Authorizer, state *StateSigner, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Tokens: tokens, State: state, Logger: logger}
}

// Connect sends the tenant admin to the CRM consent screen.
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state, err := h.State.Issue()
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	http.Redirect(w, r, h.Tokens.ConnectURL(state), http.StatusFound)
}

// Redirect is the OAuth callback (GET /auth/redirect?code=...).
func (h *AuthHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_CODE", "authorization code not found in request")
		return
	}
	if err := h.State.Verify(r.URL.Query().Get("state")); err != nil {
		h.Logger.Warn("oauth callback rejected", zap.Error(err))
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_STATE", err.Error())
		return
	}

	res, err := h.Tokens.CompleteAuthorization(r.Context(), code)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Authorization successful",
		"connection": res,
	})
}
