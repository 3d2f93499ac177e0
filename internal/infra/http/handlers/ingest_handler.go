package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

type CountyIngestor interface {
	Execute(ctx context.Context, input usecase.IngestInput) (*usecase.IngestOutput, error)
	List(ctx context.Context, tenantID string, limit int32) ([]entity.CountyRecord, error)
}

type IngestHandler struct {
	Ingestor CountyIngestor
	Logger   *zap.Logger
}

func NewIngestHandler(i CountyIngestor, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{Ingestor: i, Logger: logger}
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var input usecase.IngestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	out, err := h.Ingestor.Execute(r.Context(), input)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// ListRecords handles GET /craimer/records/{tenantID}?limit=N.
func (h *IngestHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = int32(n)
	}

	records, err := h.Ingestor.List(r.Context(), tenantID, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": tenantID,
		"count":     len(records),
		"records":   records,
	})
}
