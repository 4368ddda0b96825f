package handler

import (
	"encoding/json"
	"net/http"
)

// writeError writes a machine-readable error body. The frontend switches
// on these codes (notably insufficient_funds) so domain errors must not go
// out as plain text.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
