package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

type PhoneUpdater interface {
	Execute(ctx context.Context, input usecase.UpdatePhonesInput) (*usecase.UpdatePhonesOutput, error)
}

type PhonesHandler struct {
	Updater PhoneUpdater
	Logger  *zap.Logger
}

func NewPhonesHandler(u PhoneUpdater, logger *zap.Logger) *PhonesHandler {
	return &PhonesHandler{Updater: u, Logger: logger}
}

func (h *PhonesHandler) UpdatePhones(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdatePhonesInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	out, err := h.Updater.Execute(r.Context(), input)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
