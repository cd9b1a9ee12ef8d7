package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/fleet-fines/internal/errors"
)

// ErrorResponse is the envelope for every non-2xx body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine code and human message of an API error.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondAppError maps a service error onto the wire. Unknown errors collapse
// to a generic 500 so internals never leak.
func respondAppError(w http.ResponseWriter, err error) {
	appErr := apperrors.Categorize(err)
	respondError(w, appErr.StatusCode, appErr.Code, appErr.Message, appErr.Details)
}
