package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/http/middleware"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError maps a use-case error to its HTTP status. Anything unknown is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validations entity.ValidationErrors
		validation  *entity.ValidationError
		notFound    *entity.NotFoundError
		refresh     *entity.TokenRefreshError
		authErr     *entity.AuthorizationError
		apiErr      *entity.APIError
	)

	switch {
	case errors.As(err, &validations):
		resp := ErrorResponse{Error: "VALIDATION_ERROR", Message: validations.Error()}
		for _, v := range validations {
			resp.Details = append(resp.Details, v.Error())
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &validation):
		writeErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
	case errors.As(err, &notFound):
		writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.As(err, &refresh):
		writeErrorResponse(w, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED", refresh.Error())
	case errors.As(err, &authErr):
		writeErrorResponse(w, http.StatusUnauthorized, "AUTHORIZATION_FAILED", authErr.Error())
	case errors.As(err, &apiErr):
		middleware.RecordIntegrationError(apiErr.Service)
		logger.Warn("upstream api error", zap.String("service", apiErr.Service), zap.Int("status", apiErr.Status))
		writeErrorResponse(w, http.StatusBadGateway, "UPSTREAM_ERROR", apiErr.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
