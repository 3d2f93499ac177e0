package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/csvfile"
	"github.com/homedispo/crm-bridge/internal/usecase"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20

type ContactReconciler interface {
	Reconcile(ctx context.Context, in usecase.ReconcileInput) (*entity.ReconciliationResult, error)
}

type UploadHandler struct {
	Reconciler ContactReconciler
	Logger     *zap.Logger
}

func NewUploadHandler(rec ContactReconciler, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{Reconciler: rec, Logger: logger}
}

// UploadContacts handles POST /crm/upload-contact?locationId=...
// The response is 200 with per-row results even when some rows failed.
func (h *UploadHandler) UploadContacts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_FORM", "multipart form expected: "+err.Error())
		return
	}

	input, err := h.parseInput(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	result, err := h.Reconciler.Reconcile(r.Context(), input)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *UploadHandler) parseInput(r *http.Request) (usecase.ReconcileInput, error) {
	in := usecase.ReconcileInput{
		LocationID:           r.URL.Query().Get("locationId"),
		RemoteDuplicateCheck: !strings.EqualFold(strings.TrimSpace(r.FormValue("duplicate_check")), "false"),
	}

	if err := json.Unmarshal([]byte(r.FormValue("map_data")), &in.Mapping); err != nil {
		return in, fmt.Errorf("map_data must be a JSON object: %w", err)
	}
	if raw := r.FormValue("customFields"); strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &in.CustomFieldNames); err != nil {
			return in, fmt.Errorf("customFields must be a JSON array of names: %w", err)
		}
	}

	var err error
	if in.Reference, err = readCSVField(r, "members_file"); err != nil {
		return in, err
	}
	if in.Incoming, err = readCSVField(r, "new_members_file"); err != nil {
		return in, err
	}
	return in, nil
}

func readCSVField(r *http.Request, field string) ([]entity.Row, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	defer f.Close()

	rows, err := csvfile.ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return rows, nil
}
