package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/medibook/libs/httpx"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/storage"
)

const FullyBookedMessage = "Doctor is fully booked for this day."

// SubmissionLister reads the submission journal, normally *storage.SubmissionRepository.
type SubmissionLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]storage.SubmissionRecord, error)
}

type BookingHandler struct {
	svc         *booking.Service
	sessions    *booking.Store
	submissions SubmissionLister
	logger      *slog.Logger
}

// NewBookingHandler wires the booking routes. submissions may be nil when no journal is configured.
func NewBookingHandler(svc *booking.Service, sessions *booking.Store, submissions SubmissionLister, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		svc:         svc,
		sessions:    sessions,
		submissions: submissions,
		logger:      logger,
	}
}

func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/booking/dates", h.Dates)
	mux.HandleFunc("/api/v1/booking/slots", h.Slots)
	mux.HandleFunc("/api/v1/booking/quote", h.Quote)
	mux.HandleFunc("/api/v1/booking/appointments", h.Book)
	mux.HandleFunc("/api/v1/booking/submissions", h.Submissions)
	mux.HandleFunc("/api/v1/sessions", h.StartSession)
	mux.HandleFunc("/api/v1/sessions/date", h.SessionDate)
	mux.HandleFunc("/api/v1/sessions/time", h.SessionTime)
	mux.HandleFunc("/api/v1/sessions/confirm", h.SessionConfirm)
}

type datesResponse struct {
	DoctorID string                       `json:"doctor_id"`
	Dates    []availability.CandidateDate `json:"dates"`
}

type slotsResponse struct {
	booking.DaySlots
	Message string `json:"message,omitempty"`
}

type bookRequest struct {
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type submissionItem struct {
	SubmissionID  string `json:"submission_id"`
	DoctorID      string `json:"doctor_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Outcome       string `json:"outcome"`
	AppointmentID string `json:"appointment_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *BookingHandler) Dates(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	dates, err := h.svc.Dates(r.Context(), doctorID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datesResponse{DoctorID: doctorID, Dates: dates})
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	day, err := h.svc.Slots(r.Context(), strings.TrimSpace(q.Get("doctor_id")), strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsFor(day))
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	quote, err := h.svc.Quote(r.Context(),
		strings.TrimSpace(q.Get("doctor_id")),
		strings.TrimSpace(q.Get("date")),
		strings.TrimSpace(q.Get("start_time")),
	)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req bookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	conf, err := h.svc.Book(r.Context(), booking.Request{
		UserID:    UserIDFromContext(r.Context()),
		DoctorID:  strings.TrimSpace(req.DoctorID),
		Date:      strings.TrimSpace(req.Date),
		StartTime: strings.TrimSpace(req.StartTime),
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}

func (h *BookingHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if h.submissions == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "submission journal not configured"})
		return
	}
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, h.logger, r, booking.ErrNotAuthenticated)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.submissions.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	items := make([]submissionItem, 0, len(records))
	for _, rec := range records {
		items = append(items, submissionItem{
			SubmissionID:  rec.ID,
			DoctorID:      rec.DoctorID,
			Date:          rec.Date.Format(availability.DateLayout),
			StartTime:     rec.StartTime,
			Outcome:       rec.Outcome,
			AppointmentID: rec.AppointmentID,
			CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": items})
}

func slotsFor(day booking.DaySlots) slotsResponse {
	resp := slotsResponse{DaySlots: day}
	if day.FullyBooked {
		resp.Message = FullyBookedMessage
	}
	return resp
}
