package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON envelope used for error responses.
type ErrorBody struct {
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteErrorResponse writes the standard error envelope.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	WriteJSON(w, status, struct {
		Error ErrorBody `json:"error"`
	}{Error: ErrorBody{ErrorCode: code, Message: message, Details: details}})
}
