package medapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

const (
	msgBookingFailed  = "Failed to book appointment."
	msgFetchFailed    = "Failed to load data."
	msgUpdateFailed   = "Failed to update appointment."
	msgCheckoutFailed = "Failed to start payment."
)

// FetchDoctor loads one doctor with its weekly availability. A response wrapped as
// {"doctor": {...}} is unwrapped.
func (c *Client) FetchDoctor(ctx context.Context, doctorID string) (model.Doctor, error) {
	if err := checkID("doctor id", doctorID); err != nil {
		return model.Doctor{}, err
	}
	raw, err := c.do(ctx, call{
		endpoint: "doctor",
		method:   http.MethodGet,
		path:     []string{"doctors", doctorID},
		fallback: msgFetchFailed,
	})
	if err != nil {
		return model.Doctor{}, err
	}
	var wrapped struct {
		Doctor json.RawMessage `json:"doctor"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(bytes.TrimSpace(wrapped.Doctor)) > 0 && wrapped.Doctor[0] == '{' {
		raw = wrapped.Doctor
	}
	var d model.Doctor
	if err := decode("doctor", raw, &d); err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

// FetchAvailability loads a doctor's windows from the availability resource.
func (c *Client) FetchAvailability(ctx context.Context, doctorID string) (model.AvailabilityList, error) {
	if err := checkID("doctor id", doctorID); err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, call{
		endpoint: "availability",
		method:   http.MethodGet,
		path:     []string{"availability", "doctor", doctorID},
		fallback: msgFetchFailed,
	})
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list model.AvailabilityList
		if err := decode("availability", trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var page model.AvailabilityPage
	if err := decode("availability", trimmed, &page); err != nil {
		return nil, err
	}
	if page.Availabilities == nil {
		return model.AvailabilityList{}, nil
	}
	return page.Availabilities, nil
}

// FetchBookedSlots queries the booking registry for doctorID on date (YYYY-MM-DD).
func (c *Client) FetchBookedSlots(ctx context.Context, doctorID, date string) ([]model.Appointment, error) {
	raw, err := c.do(ctx, call{
		endpoint: "booked_slots",
		method:   http.MethodGet,
		path:     []string{"appointments"},
		query:    url.Values{"doctorId": {doctorID}, "date": {date}},
		fallback: msgFetchFailed,
	})
	if err != nil {
		return nil, err
	}
	appts, err := model.DecodeAppointments(raw)
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// CreateAppointment submits a booking. It is never retried.
func (c *Client) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (model.Appointment, error) {
	raw, err := c.do(ctx, call{
		endpoint: "create_appointment",
		method:   http.MethodPost,
		path:     []string{"appointments"},
		body:     req,
		fallback: msgBookingFailed,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	var created model.Appointment
	var wrapped struct {
		Appointment *model.Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Appointment != nil {
		return *wrapped.Appointment, nil
	}
	if err := decode("create_appointment", raw, &created); err != nil {
		return model.Appointment{}, err
	}
	return created, nil
}

func (c *Client) ListDoctors(ctx context.Context, page, pageSize int) (model.DoctorPage, error) {
	return c.doctorPage(ctx, "doctors", []string{"doctors"}, pageQuery(page, pageSize))
}

func (c *Client) BrowseDoctors(ctx context.Context, specializationID string, page, pageSize int) (model.DoctorPage, error) {
	q := pageQuery(page, pageSize)
	if specializationID != "" {
		q.Set("specializationId", specializationID)
	}
	return c.doctorPage(ctx, "browse_doctors", []string{"doctors", "specialization"}, q)
}

func (c *Client) doctorPage(ctx context.Context, endpoint string, path []string, q url.Values) (model.DoctorPage, error) {
	raw, err := c.do(ctx, call{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
		query:    q,
		fallback: msgFetchFailed,
	})
	if err != nil {
		return model.DoctorPage{}, err
	}
	var page model.DoctorPage
	if err := decode(endpoint, raw, &page); err != nil {
		return model.DoctorPage{}, err
	}
	if page.Doctors == nil {
		page.Doctors = []model.Doctor{}
	}
	if page.Total == 0 {
		page.Total = len(page.Doctors)
	}
	return page, nil
}

func (c *Client) ListSpecializations(ctx context.Context, page, pageSize int) (model.SpecializationPage, error) {
	raw, err := c.do(ctx, call{
		endpoint: "specializations",
		method:   http.MethodGet,
		path:     []string{"specializations"},
		query:    pageQuery(page, pageSize),
		fallback: msgFetchFailed,
	})
	if err != nil {
		return model.SpecializationPage{}, err
	}
	var out model.SpecializationPage
	if err := decode("specializations", raw, &out); err != nil {
		return model.SpecializationPage{}, err
	}
	if out.Specializations == nil {
		out.Specializations = []model.Specialization{}
	}
	if out.Total == 0 {
		out.Total = len(out.Specializations)
	}
	return out, nil
}

func (c *Client) ListUserAppointments(ctx context.Context, userID string, page, pageSize int) ([]model.Appointment, error) {
	q := pageQuery(page, pageSize)
	q.Set("userId", userID)
	raw, err := c.do(ctx, call{
		endpoint: "user_appointments",
		method:   http.MethodGet,
		path:     []string{"appointments", "user"},
		query:    q,
		fallback: msgFetchFailed,
	})
	if err != nil {
		return nil, err
	}
	return model.DecodeAppointments(raw)
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) (json.RawMessage, error) {
	if err := checkID("appointment id", appointmentID); err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, call{
		endpoint: "appointment_status",
		method:   http.MethodPatch,
		path:     []string{"appointments", appointmentID, "status"},
		body:     map[string]string{"status": status},
		fallback: msgUpdateFailed,
	})
	if err != nil {
		return nil, err
	}
	return jsonOrNull(raw), nil
}

func (c *Client) RescheduleAppointment(ctx context.Context, appointmentID, date string) (json.RawMessage, error) {
	if err := checkID("appointment id", appointmentID); err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, call{
		endpoint: "appointment_reschedule",
		method:   http.MethodPatch,
		path:     []string{"appointments", appointmentID, "reschedule"},
		body:     map[string]string{"date": date},
		fallback: msgUpdateFailed,
	})
	if err != nil {
		return nil, err
	}
	return jsonOrNull(raw), nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (model.CheckoutSession, error) {
	raw, err := c.do(ctx, call{
		endpoint: "checkout_session",
		method:   http.MethodPost,
		path:     []string{"payments", "create-checkout-session"},
		body:     req,
		fallback: msgCheckoutFailed,
	})
	if err != nil {
		return model.CheckoutSession{}, err
	}
	var out model.CheckoutSession
	if err := decode("checkout_session", raw, &out); err != nil {
		return model.CheckoutSession{}, err
	}
	if out.URL == "" {
		return model.CheckoutSession{}, &APIError{StatusCode: http.StatusBadGateway, Message: msgCheckoutFailed}
	}
	return out, nil
}

// checkID rejects ids that could escape their path segment.
func checkID(kind, id string) error {
	if id == "" || len(id) > 64 {
		return &APIError{StatusCode: http.StatusBadRequest, Message: "invalid " + kind}
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return &APIError{StatusCode: http.StatusBadRequest, Message: "invalid " + kind}
		}
	}
	return nil
}

func jsonOrNull(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 || !json.Valid(raw) {
		return json.RawMessage("null")
	}
	return json.RawMessage(raw)
}

// PageSize clamps a requested page size to [1, 100], defaulting to 10.
func PageSize(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 10
	}
	if n > 100 {
		return 100
	}
	return n
}

// Page parses a 1-based page number, defaulting to 1.
func Page(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
