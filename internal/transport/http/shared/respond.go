// Package shared holds the response helpers every HTTP handler uses, so the
// error wire format stays identical across the surface.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "oidcgate/pkg/domain-errors"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON serializes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto the wire: the code becomes the status,
// the client-safe message becomes the description. Raw internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	body := ErrorBody{
		Error:            string(code),
		ErrorDescription: dErrors.MessageOf(err),
	}
	if status >= http.StatusInternalServerError {
		body = ErrorBody{Error: "server_error"}
	}
	// A disabled feature answers exactly like a missing route; the flag's
	// existence is not disclosed.
	if code == dErrors.CodeDisabled {
		body = ErrorBody{Error: "not_found"}
	}
	WriteJSON(w, status, body)
}
