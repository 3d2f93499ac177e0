package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/homedispo/crm-bridge/internal/infra/integration/docusign"
	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

type EnvelopeSender interface {
	Execute(ctx context.Context, input usecase.SendEnvelopeInput) (*docusign.EnvelopeResult, error)
}

type EnvelopeHandler struct {
	Sender EnvelopeSender
	Logger *zap.Logger
}

func NewEnvelopeHandler(s EnvelopeSender, logger *zap.Logger) *EnvelopeHandler {
	return &EnvelopeHandler{Sender: s, Logger: logger}
}

func (h *EnvelopeHandler) SendEnvelope(w http.ResponseWriter, r *http.Request) {
	if h.Sender == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "e-signature integration is not configured")
		return
	}

	var input usecase.SendEnvelopeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	res, err := h.Sender.Execute(r.Context(), input)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
