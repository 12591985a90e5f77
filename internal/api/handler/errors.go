package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/validation"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, writing a 400 and returning
// false when it is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}
	return true
}

// idParam parses the {id} URL parameter, writing a 400 and returning false
// when it is not a UUID.
func idParam(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

// writeValidation writes a 400 with field details if err is a validation
// failure and reports whether it did.
func writeValidation(w http.ResponseWriter, err error, requestID string) bool {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", []validation.FieldError(verrs), requestID)
	return true
}

func writeInternal(w http.ResponseWriter, err error, message, requestID string) {
	slog.Error(message, "error", err, "requestId", requestID)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, requestID)
}
