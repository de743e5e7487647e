// Package http provides the HTTP handlers and routing for the captcha
// service: anonymous widget endpoints and operator-only captcha management.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// errorResponse is the body of every JSON error reply.
type errorResponse struct {
	Error   string `json:"error"`
	Success *bool  `json:"success,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure is writeError with an explicit success:false, the shape the
// widget expects from the verify endpoint.
func writeFailure(w http.ResponseWriter, status int, msg string) {
	f := false
	writeJSON(w, status, errorResponse{Error: msg, Success: &f})
}

// pathID parses the {id} route parameter as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
