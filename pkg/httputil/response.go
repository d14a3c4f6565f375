package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/ecomcore/catalog/pkg/errors"
	"github.com/ecomcore/catalog/pkg/logger"
	"github.com/ecomcore/catalog/pkg/validator"
)

// ErrorResponse is the wire shape of every error payload.
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// the status line is already written; nothing useful to do on encode failure
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps an error to its HTTP status and writes the error payload.
// Internal errors are logged and masked with a generic message.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Message: "validation failed",
			Code:    "VALIDATION_FAILED",
			Fields:  validationErr.Fields(),
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.Status
		if status >= http.StatusInternalServerError {
			logger.FromContext(ctx).Error("request failed", "error", err)
			WriteJSON(w, status, ErrorResponse{
				Message: "internal server error",
				Code:    "INTERNAL",
			})
			return
		}
		WriteJSON(w, status, ErrorResponse{
			Message: appErr.Message,
			Code:    appErr.Code,
			Fields:  appErr.Fields,
		})
		return
	}

	logger.FromContext(ctx).Error("unhandled error", "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Message: "internal server error",
		Code:    "INTERNAL",
	})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// URLParamUUID extracts and parses a UUID path parameter.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("invalid " + name + ": must be a UUID")
	}
	return id, nil
}
