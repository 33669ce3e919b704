// internal/app/features/errors/errors.go
// Package errors renders API failures as JSON. Handlers pass any error
// to Write; typed apperr errors keep their kind and message, everything
// else becomes a generic 500.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write renders err. Internal failures are logged with the request id.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	reqID := middleware.GetReqID(r.Context())

	if kind == apperr.KindInternal || kind == apperr.KindExternalService {
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	WriteJSON(w, status, apperr.ResponseOf(err))
}

// Handler serves the router's fallback responses.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, apperr.ResponseOf(apperr.NotFound("Route not found")))
}

// MethodNotAllowed is the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, apperr.Response{
		Kind:    "method_not_allowed",
		Code:    "MethodNotAllowed",
		Message: "Method not allowed",
	})
}
