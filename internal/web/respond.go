package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// errorBody is the shape of every failed API answer. Toast carries the
// user-facing message when there is one.
type errorBody struct {
	Error string `json:"error"`
	Toast string `json:"toast,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusFromError(err)
	body := errorBody{Error: err.Error()}

	var te *model.TargetError
	if errors.As(err, &te) {
		body.Toast = te.Message
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		slog.Error("Request failed", "error", err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %v: %w", err, apperrors.ErrInvalidRequest)
	}
	return nil
}
