package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

// API is the slice of the medical REST API the booking flow needs.
type API interface {
	FetchDoctor(ctx context.Context, doctorID string) (model.Doctor, error)
	FetchAvailability(ctx context.Context, doctorID string) (model.AvailabilityList, error)
	FetchBookedSlots(ctx context.Context, doctorID, date string) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (model.Appointment, error)
}

// Journal records submissions that reached the Appointment Creation API.
type Journal interface {
	RecordSubmission(ctx context.Context, sub Submission) error
}

type Recorder interface {
	ObserveSubmission(outcome string)
}

const (
	OutcomeCreated  = "created"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Submission struct {
	ID             string
	UserID         string
	DoctorID       string
	AvailabilityID string
	Date           string
	StartTime      string
	EndTime        string
	Fee            float64
	Outcome        string
	Message        string
	AppointmentID  string
	RequestID      string
	CreatedAt      time.Time
}

type Quote struct {
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Fee            float64 `json:"fee"`
	AvailabilityID string  `json:"availability_id,omitempty"`
	Matched        bool    `json:"matched"`
}

type DaySlots struct {
	Date        string   `json:"date"`
	Slots       []string `json:"slots"`
	FullyBooked bool     `json:"fully_booked"`
}

type Request struct {
	UserID    string
	DoctorID  string
	Date      string
	StartTime string
	RequestID string
}

type Confirmation struct {
	SubmissionID string            `json:"submission_id"`
	Appointment  model.Appointment `json:"appointment"`
	Quote        Quote             `json:"quote"`
	RedirectTo   string            `json:"redirect_to"`
}

// AppointmentsView is where a patient lands after a successful booking.
const AppointmentsView = "/user-dashboard/appointments"

type Service struct {
	api      API
	journal  Journal
	recorder Recorder
	loc      *time.Location
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

type Options struct {
	Journal  Journal
	Recorder Recorder
	Location *time.Location
	Logger   *slog.Logger
}

func NewService(api API, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		api:      api,
		journal:  opts.Journal,
		recorder: opts.Recorder,
		loc:      opts.Location,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   opts.Logger,
	}
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Doctor fetches a doctor fresh. When the record carries no availability field at all,
// the windows are read from the availability resource instead.
func (s *Service) Doctor(ctx context.Context, doctorID string) (model.Doctor, error) {
	if doctorID == "" {
		return model.Doctor{}, ErrNoDoctor
	}
	d, err := s.api.FetchDoctor(ctx, doctorID)
	if err != nil {
		return model.Doctor{}, err
	}
	if d.DoctorID == "" {
		d.DoctorID = model.ID(doctorID)
	}
	if d.Availability == nil {
		list, err := s.api.FetchAvailability(ctx, doctorID)
		if err != nil {
			return model.Doctor{}, err
		}
		d.Availability = list
	}
	return d, nil
}

func (s *Service) Dates(ctx context.Context, doctorID string) ([]availability.CandidateDate, error) {
	d, err := s.Doctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return availability.AvailableDates(s.today(), d.Availability.Windows()), nil
}

func (s *Service) Slots(ctx context.Context, doctorID, date string) (DaySlots, error) {
	d, err := s.Doctor(ctx, doctorID)
	if err != nil {
		return DaySlots{}, err
	}
	day, err := s.candidateDate(d, date)
	if err != nil {
		return DaySlots{}, err
	}
	booked, err := s.api.FetchBookedSlots(ctx, string(d.DoctorID), date)
	if err != nil {
		return DaySlots{}, err
	}
	return bookable(day, d, booked), nil
}

func (s *Service) Quote(ctx context.Context, doctorID, date, startTime string) (Quote, error) {
	d, err := s.Doctor(ctx, doctorID)
	if err != nil {
		return Quote{}, err
	}
	day, err := s.candidateDate(d, date)
	if err != nil {
		return Quote{}, err
	}
	return quote(day, startTime, d)
}

// Book validates the selection locally, then submits it once to the Appointment Creation API.
// Selection and identity are checked before any network call. The doctor is then fetched
// (one GET) to resolve the matching window, so a time outside every window fails after
// that read. No create call is made when any precondition fails.
func (s *Service) Book(ctx context.Context, req Request) (Confirmation, error) {
	if req.Date == "" || req.StartTime == "" {
		return s.reject(ErrSelectionIncomplete)
	}
	if req.UserID == "" {
		return s.reject(ErrNotAuthenticated)
	}
	d, err := s.Doctor(ctx, req.DoctorID)
	if err != nil {
		return Confirmation{}, err
	}
	return s.submit(ctx, d, req)
}

// submit runs the window-match precondition against an already loaded doctor and creates the appointment.
func (s *Service) submit(ctx context.Context, d model.Doctor, req Request) (Confirmation, error) {
	if req.Date == "" || req.StartTime == "" {
		return s.reject(ErrSelectionIncomplete)
	}
	if req.UserID == "" {
		return s.reject(ErrNotAuthenticated)
	}
	day, err := s.candidateDate(d, req.Date)
	if err != nil {
		return s.reject(err)
	}
	q, err := quote(day, req.StartTime, d)
	if err != nil || !q.Matched || q.AvailabilityID == "" {
		return s.reject(ErrNoMatchingWindow)
	}

	body := model.CreateAppointmentRequest{
		UserID:          model.ID(req.UserID),
		DoctorID:        d.DoctorID,
		AvailabilityID:  model.ID(q.AvailabilityID),
		AppointmentDate: q.Date,
		StartTime:       q.StartTime,
		EndTime:         q.EndTime,
		TotalAmount:     model.FormatAmount(q.Fee),
	}
	sub := Submission{
		ID:             s.newID(),
		UserID:         req.UserID,
		DoctorID:       string(d.DoctorID),
		AvailabilityID: q.AvailabilityID,
		Date:           q.Date,
		StartTime:      q.StartTime,
		EndTime:        q.EndTime,
		Fee:            q.Fee,
		RequestID:      req.RequestID,
		CreatedAt:      s.now().UTC(),
	}

	created, err := s.api.CreateAppointment(ctx, body)
	if err != nil {
		sub.Outcome = OutcomeFailed
		sub.Message = err.Error()
		s.record(ctx, sub)
		return Confirmation{}, err
	}
	sub.Outcome = OutcomeCreated
	sub.AppointmentID = string(created.ID)
	s.record(ctx, sub)
	s.logger.Info("appointment booked",
		"submission_id", sub.ID,
		"doctor_id", sub.DoctorID,
		"date", sub.Date,
		"start_time", sub.StartTime,
		"appointment_id", sub.AppointmentID,
	)
	return Confirmation{
		SubmissionID: sub.ID,
		Appointment:  created,
		Quote:        q,
		RedirectTo:   AppointmentsView,
	}, nil
}

func (s *Service) reject(err error) (Confirmation, error) {
	if s.recorder != nil {
		s.recorder.ObserveSubmission(OutcomeRejected)
	}
	return Confirmation{}, err
}

// record journals a submission. Failures are logged and never change the result.
func (s *Service) record(ctx context.Context, sub Submission) {
	if s.recorder != nil {
		s.recorder.ObserveSubmission(sub.Outcome)
	}
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordSubmission(context.WithoutCancel(ctx), sub); err != nil {
		s.logger.Warn("journal submission failed", "err", err, "submission_id", sub.ID)
	}
}

// candidateDate parses date and requires it to be one of the doctor's bookable dates.
func (s *Service) candidateDate(d model.Doctor, date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, ErrSelectionIncomplete
	}
	day, err := availability.ParseDate(date)
	if err != nil {
		return time.Time{}, ErrUnknownDate
	}
	if !availability.InHorizon(s.today(), day, d.Availability.Windows()) {
		return time.Time{}, ErrUnknownDate
	}
	return day, nil
}

func bookable(day time.Time, d model.Doctor, booked []model.Appointment) DaySlots {
	slots := availability.FilterBooked(
		availability.DaySlots(day, d.Availability.Windows()),
		model.BookedStarts(booked),
	)
	return DaySlots{
		Date:        day.Format(availability.DateLayout),
		Slots:       slots,
		FullyBooked: len(slots) == 0,
	}
}

func quote(day time.Time, startTime string, d model.Doctor) (Quote, error) {
	res, err := availability.Resolve(day, startTime, d.Availability.Windows())
	if err != nil {
		if errors.Is(err, availability.ErrInvalidClock) {
			return Quote{}, ErrInvalidTime
		}
		return Quote{}, err
	}
	q := Quote{
		Date:      day.Format(availability.DateLayout),
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
		Fee:       res.Fee,
		Matched:   res.Matched(),
	}
	if res.Window != nil {
		q.AvailabilityID = res.Window.ID
	}
	return q, nil
}
