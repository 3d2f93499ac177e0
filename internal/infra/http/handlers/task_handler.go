package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

type FollowUpTaskCreator interface {
	Execute(ctx context.Context, input usecase.FollowUpInput) (*usecase.FollowUpOutput, error)
}

type TaskHandler struct {
	Creator FollowUpTaskCreator
	Logger  *zap.Logger
}

func NewTaskHandler(c FollowUpTaskCreator, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{Creator: c, Logger: logger}
}

// CreateTask handles the CRM workflow webhook POST /webhook/create-task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input usecase.FollowUpInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	out, err := h.Creator.Execute(r.Context(), input)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
