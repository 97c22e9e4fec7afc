package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gym-membership/internal/domain"
)

const (
	serverErrorMessage = "Server error"
	maxBodyBytes       = 1 << 20
)

type errorBody struct {
	Message string `json:"message"`
}

type statusRule struct {
	err    error
	status int
}

// order matters: the first sentinel that matches wins
var statusRules = []statusRule{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrAccessDenied, http.StatusForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrLockBusy, http.StatusConflict},
	{domain.ErrInvalidState, http.StatusBadRequest},
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
}

// statusFor maps the domain taxonomy onto HTTP. Unknown errors are 500s.
func statusFor(err error) (int, error) {
	for _, rule := range statusRules {
		if errors.Is(err, rule.err) {
			return rule.status, rule.err
		}
	}
	return http.StatusInternalServerError, nil
}

// messageFor returns the human text without the sentinel prefix, so
// "validation failed: reason is required" is shown as "reason is required".
func messageFor(err error, sentinel error) string {
	msg := err.Error()
	if sentinel == nil {
		return serverErrorMessage
	}
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, sentinel := statusFor(err)
	writeJSON(w, status, errorBody{Message: messageFor(err, sentinel)})
	if status == http.StatusInternalServerError {
		// full detail goes to the log, never to the client
		exposeError(w, err)
	}
}

// decodeJSON reads a single JSON object into dst; an empty body is a
// validation error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", domain.ErrValidation)
		}
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	return nil
}
