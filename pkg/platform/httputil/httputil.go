// Package httputil centralizes JSON response writing and request decoding so
// handlers stay thin and error envelopes stay consistent.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "riskgate/pkg/domain-errors"
)

// errorEnvelope is the JSON shape of every error response.
type errorEnvelope struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors omit the description so implementation detail never leaks
// to clients; every other code surfaces its message. Reasons carry rule
// identifiers only, never the content that triggered them.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	env := errorEnvelope{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if ok := asDomainError(err, &de); ok {
			env.ErrorDescription = de.Message
			env.Reasons = de.Reasons
		} else {
			env.ErrorDescription = err.Error()
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), env)
}

func asDomainError(err error, target **dErrors.Error) bool {
	for err != nil {
		if de, ok := err.(*dErrors.Error); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Decode parses the request body into T. Returns a bad_request domain error
// on malformed input. Unknown fields are rejected to catch client typos.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}

// DecodeAndPrepare decodes the request body into T, writing the error
// response and logging on failure. The bool result signals whether the
// handler should continue.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	v, err := Decode[T](r)
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, err)
		return v, false
	}
	return v, true
}
