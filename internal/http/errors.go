package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/catalog"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	writeJSON(w, status, e)
}

// writeStoreError maps storage and upstream failures onto status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, catalog.ErrUpstream):
		s.logger.Warn("upstream failure", requestField(r), zap.Error(err))
		WriteError(w, r, http.StatusBadGateway, "upstream_error", "platform API unavailable")
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		WriteError(w, r, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		s.logger.Error("request failed", requestField(r), zap.Error(err))
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
