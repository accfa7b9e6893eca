package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/store"
)

type errorBody struct {
	Code    oserrors.Code `json:"code"`
	Message string        `json:"message"`
	Patches []string      `json:"patches,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	switch oserrors.ClassOf(oserrors.GetCode(err)) {
	case oserrors.ClassInput:
		return http.StatusBadRequest
	case oserrors.ClassCompile:
		return http.StatusUnprocessableEntity
	case oserrors.ClassNotFound:
		return http.StatusNotFound
	case oserrors.ClassUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// codeOf returns the structured code of err, falling back to a code derived
// from its status.
func codeOf(err error, status int) oserrors.Code {
	if c := oserrors.GetCode(err); c != "" {
		return c
	}
	switch status {
	case http.StatusNotFound:
		return oserrors.ErrCodeNotFound
	case http.StatusBadRequest:
		return oserrors.ErrCodeInvalidInput
	}
	return oserrors.ErrCodeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    codeOf(err, status),
		Message: err.Error(),
		Patches: oserrors.PatchesOf(err),
	}})
}

// badRequest wraps a decoding failure.
func badRequest(err error, what string) error {
	return oserrors.Wrap(oserrors.ErrCodeInvalidInput, err, "decode %s", what)
}
