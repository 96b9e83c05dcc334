// Package http provides the shared HTTP plumbing: error-returning handlers
// and the serving loop. Handlers return errors instead of writing status
// codes themselves; the error category decides the response.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/rango-exchange/router-middleware/pkg/app/errors"
)

// HandlerFunc is an http.HandlerFunc that reports failure as an error.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// HandleError adapts a HandlerFunc for any router, for example:
//
//	r.Post("/settlements", apphttp.HandleError(h.settle))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(w, err)
		}
	}
}

// DefaultErrorHandler writes the JSON error body for a failed handler. A
// ServiceError maps to its category's status code with its client-safe
// message; anything else is a 500 with a generic body so internal detail
// never leaks.
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	type errorResponse struct {
		ErrMsg     string `json:"error"`
		ErrMsgCode int    `json:"code"`
	}

	w.Header().Set("Content-Type", "application/json")

	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		w.WriteHeader(svcErr.StatusCode())
		_ = json.NewEncoder(w).Encode(&errorResponse{
			ErrMsg:     svcErr.Message,
			ErrMsgCode: svcErr.StatusCode(),
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(&errorResponse{
		ErrMsg:     "Unexpected Service Error",
		ErrMsgCode: http.StatusInternalServerError,
	})
}
