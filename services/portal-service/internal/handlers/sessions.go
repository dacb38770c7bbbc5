package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/medibook/libs/httpx"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
)

type sessionRequest struct {
	SessionID string `json:"session_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type sessionResponse struct {
	booking.View
	Message string `json:"message,omitempty"`
}

func viewResponse(v booking.View) sessionResponse {
	resp := sessionResponse{View: v}
	if v.FullyBooked {
		resp.Message = FullyBookedMessage
	}
	return resp
}

// StartSession opens a booking session for doctor_id, or reselects the doctor of an existing session.
func (h *BookingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status := http.StatusOK
	var sess *booking.Session
	if id := strings.TrimSpace(req.SessionID); id != "" {
		var err error
		if sess, err = h.sessions.Get(id); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	} else {
		sess = h.sessions.Create()
		status = http.StatusCreated
	}
	view, err := h.svc.SelectDoctor(r.Context(), sess, strings.TrimSpace(req.DoctorID))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, status, viewResponse(view))
}

func (h *BookingHandler) SessionDate(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.svc.SelectDate(r.Context(), sess, strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(view))
}

func (h *BookingHandler) SessionTime(w http.ResponseWriter, r *http.Request) {
	sess, req, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.svc.SelectTime(r.Context(), sess, strings.TrimSpace(req.StartTime))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(view))
}

func (h *BookingHandler) SessionConfirm(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}
	conf, err := h.svc.Confirm(r.Context(), sess, UserIDFromContext(r.Context()), httpx.RequestIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *BookingHandler) session(w http.ResponseWriter, r *http.Request) (*booking.Session, sessionRequest, bool) {
	var req sessionRequest
	if !allow(w, r, http.MethodPost) || !decodeBody(w, r, &req) {
		return nil, req, false
	}
	sess, err := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if err != nil {
		writeError(w, h.logger, r, err)
		return nil, req, false
	}
	return sess, req, true
}
