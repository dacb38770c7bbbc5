package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes {"error": msg}.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "err", err, "path", r.URL.Path, "status", code)
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		switch verr {
		case booking.ErrNotAuthenticated:
			return http.StatusUnauthorized, verr.Message
		case booking.ErrNoMatchingWindow:
			return http.StatusUnprocessableEntity, verr.Message
		}
		return http.StatusBadRequest, verr.Message
	}
	if errors.Is(err, booking.ErrSuperseded) {
		return http.StatusConflict, err.Error()
	}
	if errors.Is(err, booking.ErrSessionNotFound) {
		return http.StatusNotFound, err.Error()
	}
	var apiErr *medapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode, apiErr.Message
		}
		return http.StatusBadGateway, apiErr.Message
	}
	return http.StatusInternalServerError, "internal error"
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return false
	}
	return true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
