// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the body shape of every response:
// {"status": "success"|"error", "message": "...", "data": {...}}.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a success envelope with the given status code and
// optional data payload.
func Success(w http.ResponseWriter, code int, message string, data any) {
	write(w, code, Envelope{Status: "success", Message: message, Data: data})
}

// Error writes an error envelope with the given status code.
func Error(w http.ResponseWriter, code int, message string) {
	write(w, code, Envelope{Status: "error", Message: message})
}

func write(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
