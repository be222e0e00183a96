package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nexusbuy-analytics/internal/analytics"
	"nexusbuy-analytics/pkg/logging/logging"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.L(r.Context())

	var originErr *analytics.OriginError
	switch {
	case errors.Is(err, analytics.ErrInvalidInput):
		logger.Info("invalid_request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_input", Message: err.Error()})
	case errors.Is(err, analytics.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request_timeout", zap.Error(err))
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "gateway_timeout", Message: "request timed out"})
	case errors.As(err, &originErr):
		logger.Error("origin_error", zap.String("query_type", string(originErr.QueryType)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "origin_error", Message: err.Error()})
	default:
		logger.Error("internal_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: err.Error()})
	}
}
