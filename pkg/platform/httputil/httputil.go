// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes: {"status":"success","data":...} on success and
// {"status":"error","message":...} on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "bdivp/pkg/domain-errors"
)

// Response is the success envelope.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteJSON writes a success envelope with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Status: "success", Data: data})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Status: "success", Message: message})
}

// WriteError translates an error into the error envelope. Domain errors carry
// their own safe message; anything else becomes a generic internal error so
// storage and upstream detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = dErrors.ToHTTPStatus(de.Code)
		if de.Code != dErrors.CodeInternal {
			message = de.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Message: message})
}
