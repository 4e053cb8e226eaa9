package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"aftersales/internal/warranty"
	"aftersales/pkg/platform/sentinel"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: "internal"}
	status := http.StatusInternalServerError

	if ve, ok := warranty.AsValidation(err); ok {
		status = http.StatusBadRequest
		resp = errorResponse{Error: "validation", Message: ve.Error(), Missing: ve.Missing}
	} else {
		switch {
		case errors.Is(err, warranty.ErrDuplicateSerial):
			status = http.StatusConflict
			resp = errorResponse{Error: "duplicate_serial", Message: err.Error()}
		case errors.Is(err, warranty.ErrInvalidTransition):
			status = http.StatusUnprocessableEntity
			resp = errorResponse{Error: "invalid_transition", Message: err.Error()}
		case errors.Is(err, sentinel.ErrNotFound):
			status = http.StatusNotFound
			resp = errorResponse{Error: "not_found"}
		case errors.Is(err, sentinel.ErrConflict):
			status = http.StatusConflict
			resp = errorResponse{Error: "conflict"}
		case errors.Is(err, sentinel.ErrUnavailable):
			status = http.StatusServiceUnavailable
			resp = errorResponse{Error: "unavailable"}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
