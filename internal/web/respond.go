package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error      string             `json:"error"`
	Kind       apperr.Kind        `json:"kind,omitempty"`
	Violations []apperr.Violation `json:"violations,omitempty"`
	From       string             `json:"from,omitempty"`
	To         string             `json:"to,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
var statusFor = map[apperr.Kind]int{
	apperr.KindValidation:         http.StatusBadRequest,
	apperr.KindConflict:           http.StatusConflict,
	apperr.KindExpired:            http.StatusGone,
	apperr.KindInvalidTransition:  http.StatusConflict,
	apperr.KindPermissionDenied:   http.StatusForbidden,
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindNoChange:           http.StatusConflict,
	apperr.KindPreconditionFailed: http.StatusPreconditionFailed,
	apperr.KindNetwork:            http.StatusServiceUnavailable,
	apperr.KindAuth:               http.StatusUnauthorized,
}

// apiError writes a plain JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, ErrorResponse{Error: msg}, code)
}

// writeError renders err with the status for its kind. Errors without a
// kind are internal failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		apiError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code, ok := statusFor[e.Kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	apiJSON(w, ErrorResponse{
		Error:      e.Error(),
		Kind:       e.Kind,
		Violations: e.Violations,
		From:       e.From,
		To:         e.To,
	}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		apiJSON(w, ErrorResponse{
			Error: "invalid JSON body: " + err.Error(),
			Kind:  apperr.KindValidation,
		}, http.StatusBadRequest)
		return false
	}
	return true
}
