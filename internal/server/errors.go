package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/dora-molecule/internal/errs"
)

type errorBody struct {
	Error string `json:"error"`
}

// classify maps an error to its HTTP status and a metrics label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, errs.ErrUnknownTool):
		return http.StatusNotFound, "unknown_tool"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "data_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, logger *zap.SugaredLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to write response JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status, _ := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, logger, status, errorBody{Error: msg})
}
