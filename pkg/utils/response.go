package utils

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response with status and sensible headers.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes the API error envelope. kind is the machine-readable
// failure classification; message is safe to show a user.
func JSONError(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, map[string]any{"error": message, "kind": kind})
}
