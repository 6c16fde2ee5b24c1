package auth

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every authentication error. The message is fixed per
// status so callers cannot tell which check failed.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var (
	unauthorizedBody = ErrorResponse{Error: "unauthorized", ErrorDescription: "Authentication required"}
	forbiddenBody    = ErrorResponse{Error: "forbidden", ErrorDescription: "Invalid CSRF token"}
)

// WriteUnauthorized writes the uniform 401 response
func WriteUnauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, unauthorizedBody)
}

// WriteForbidden writes the uniform CSRF 403 response
func WriteForbidden(w http.ResponseWriter) {
	WriteJSON(w, http.StatusForbidden, forbiddenBody)
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
