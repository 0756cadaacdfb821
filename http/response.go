package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/picshed/picshed"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the response for a service error. Clients get a stable
// error code and a generic message per failure kind; internal store error
// text is logged here, never echoed to the client.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds the size limit")
		return
	}

	switch {
	case errors.Is(err, picshed.ErrInvalidFile):
		WriteError(w, http.StatusBadRequest, "invalid_file", "Only jpg and jpeg files are accepted")
	case errors.Is(err, picshed.ErrPayloadTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds the size limit")
	case errors.Is(err, picshed.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Sign in to continue")
	case errors.Is(err, picshed.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "You do not own this image")
	case errors.Is(err, picshed.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Image not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
