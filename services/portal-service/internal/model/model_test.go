package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDoctor_DecodesAvailabilityAliases(t *testing.T) {
	body := `{
		"doctorId": 7,
		"user": {"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
		"specialization": {"specializationId": 3, "name": "Cardiology"},
		"availability": [
			{"availabilityId": 11, "dayOfWeek": "Monday", "startTime": "09:00:00", "endTime": "12:00:00", "amount": "500"},
			{"id": "12", "day": "tuesday", "start": "13:00", "end": "15:00", "fee": 250.5},
			"garbage"
		]
	}`
	var d Doctor
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.DoctorID != "7" {
		t.Fatalf("unexpected doctor id: %q", d.DoctorID)
	}
	if len(d.Availability) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(d.Availability))
	}
	first := d.Availability[0]
	if first.ID != "11" || first.DayOfWeek != "Monday" || first.StartTime != "09:00:00" || first.Amount != 500 {
		t.Fatalf("unexpected first window: %+v", first)
	}
	second := d.Availability[1].Window()
	if second.ID != "12" || second.DayOfWeek != "tuesday" || second.StartTime != "13:00" || second.EndTime != "15:00" || second.Fee != 250.5 {
		t.Fatalf("unexpected second window: %+v", second)
	}
	if d.DisplayName() != "Dr. Ada Lovelace" || d.SpecializationName() != "Cardiology" {
		t.Fatalf("unexpected names: %s / %s", d.DisplayName(), d.SpecializationName())
	}
}

func TestDoctor_NonArrayAvailabilityIsEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `{}`, `"monday"`, `42`} {
		var d Doctor
		if err := json.Unmarshal([]byte(`{"doctorId":"d1","availability":`+raw+`}`), &d); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if len(d.Availability) != 0 {
			t.Fatalf("expected empty availability for %s, got %d", raw, len(d.Availability))
		}
	}
	var d Doctor
	if err := json.Unmarshal([]byte(`{"doctorId":"d1"}`), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Availability.Windows()) != 0 {
		t.Fatalf("expected no windows")
	}
	if d.SpecializationName() != "General Practitioner" {
		t.Fatalf("unexpected fallback: %s", d.SpecializationName())
	}
}

func TestAmount_Unparseable(t *testing.T) {
	var a struct {
		Amount Amount `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"free"}`), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Amount != 0 {
		t.Fatalf("expected zero, got %v", a.Amount)
	}
	if FormatAmount(500) != "500" || FormatAmount(12.5) != "12.5" || FormatAmount(0) != "0" {
		t.Fatalf("unexpected formatting")
	}
}

func TestCreateAppointmentRequest_NumericIDs(t *testing.T) {
	req := CreateAppointmentRequest{
		UserID:          "42",
		DoctorID:        "doc-7",
		AvailabilityID:  "11",
		AppointmentDate: "2026-01-05",
		StartTime:       "11:00",
		EndTime:         "12:00",
		TotalAmount:     "500",
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"userId":42`, `"doctorId":"doc-7"`, `"availabilityId":11`, `"totalAmount":"500"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}

func TestDecodeAppointments(t *testing.T) {
	appts, err := DecodeAppointments([]byte(`[{"id":1,"startTime":"10:00:00"},{"appointmentId":2,"startTime":""}]`))
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	starts := BookedStarts(appts)
	if len(starts) != 1 || starts[0] != "10:00:00" {
		t.Fatalf("unexpected starts: %v", starts)
	}
	wrapped, err := DecodeAppointments([]byte(`{"appointments":[{"id":3,"date":"2026-01-05","startTime":"09:00"}]}`))
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}
	if len(wrapped) != 1 || wrapped[0].ID != "3" || wrapped[0].AppointmentDate != "2026-01-05" {
		t.Fatalf("unexpected wrapped: %+v", wrapped)
	}
	empty, err := DecodeAppointments([]byte(`null`))
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}
}
