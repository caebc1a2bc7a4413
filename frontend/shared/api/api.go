package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON encodes v with the given status. Encoding failures are logged; the
// status line has already gone out by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response failed", slog.Any("err", err))
	}
}

// Error writes a JSON error body with a user-facing message.
func Error(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// DecodeBody decodes a JSON request body into dst. Bodies are capped at 10 MB.
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 10<<20))
	return dec.Decode(dst)
}
