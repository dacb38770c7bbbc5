package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

// AppointmentsAPI is the follow-up surface of the medical API, normally *medapi.Client.
type AppointmentsAPI interface {
	ListUserAppointments(ctx context.Context, userID string, page, pageSize int) ([]model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) (json.RawMessage, error)
	RescheduleAppointment(ctx context.Context, appointmentID, date string) (json.RawMessage, error)
	CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (model.CheckoutSession, error)
}

var appointmentStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"completed": true,
	"cancelled": true,
}

type AppointmentsHandler struct {
	api    AppointmentsAPI
	logger *slog.Logger
}

func NewAppointmentsHandler(api AppointmentsAPI, logger *slog.Logger) *AppointmentsHandler {
	return &AppointmentsHandler{api: api, logger: logger}
}

func (h *AppointmentsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/appointments/mine", h.Mine)
	mux.HandleFunc("/api/v1/appointments/status", h.Status)
	mux.HandleFunc("/api/v1/appointments/reschedule", h.Reschedule)
	mux.HandleFunc("/api/v1/payments/checkout", h.Checkout)
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
}

type checkoutRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Amount        float64 `json:"amount"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func (h *AppointmentsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	appts, err := h.api.ListUserAppointments(r.Context(), userID, medapi.Page(q.Get("page")), medapi.PageSize(q.Get("page_size")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (h *AppointmentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if _, ok := h.identity(w, r); !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !appointmentStatuses[status] {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}
	raw, err := h.api.UpdateAppointmentStatus(r.Context(), strings.TrimSpace(req.AppointmentID), status)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": req.AppointmentID, "status": status, "result": raw})
}

func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if _, ok := h.identity(w, r); !ok {
		return
	}
	var req rescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date := strings.TrimSpace(req.Date)
	if _, err := availability.ParseDate(date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid date"})
		return
	}
	raw, err := h.api.RescheduleAppointment(r.Context(), strings.TrimSpace(req.AppointmentID), date)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": req.AppointmentID, "date": date, "result": raw})
}

func (h *AppointmentsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if _, ok := h.identity(w, r); !ok {
		return
	}
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.AppointmentID)
	if id == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "appointment_id and a positive amount are required"})
		return
	}
	session, err := h.api.CreateCheckoutSession(r.Context(), model.CheckoutRequest{
		Amount:        req.Amount,
		AppointmentID: model.ID(id),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: session.URL})
}

func (h *AppointmentsHandler) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, h.logger, r, booking.ErrNotAuthenticated)
		return "", false
	}
	return userID, true
}
