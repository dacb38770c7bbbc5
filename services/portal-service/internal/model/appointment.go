package model

import (
	"bytes"
	"encoding/json"
)

type Appointment struct {
	ID              ID     `json:"appointmentId"`
	UserID          ID     `json:"userId,omitempty"`
	DoctorID        ID     `json:"doctorId,omitempty"`
	AvailabilityID  ID     `json:"availabilityId,omitempty"`
	AppointmentDate string `json:"appointmentDate,omitempty"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime,omitempty"`
	TotalAmount     Amount `json:"totalAmount,omitempty"`
	Status          string `json:"status,omitempty"`
	IsPaid          bool   `json:"isPaid,omitempty"`
}

type appointmentWire struct {
	AppointmentID   ID     `json:"appointmentId"`
	AltID           ID     `json:"id"`
	UserID          ID     `json:"userId"`
	DoctorID        ID     `json:"doctorId"`
	AvailabilityID  ID     `json:"availabilityId"`
	AppointmentDate string `json:"appointmentDate"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	TotalAmount     Amount `json:"totalAmount"`
	Status          string `json:"status"`
	IsPaid          bool   `json:"isPaid"`
}

func (a *Appointment) UnmarshalJSON(b []byte) error {
	var w appointmentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*a = Appointment{
		ID:              firstID(w.AppointmentID, w.AltID),
		UserID:          w.UserID,
		DoctorID:        w.DoctorID,
		AvailabilityID:  w.AvailabilityID,
		AppointmentDate: firstString(w.AppointmentDate, w.Date),
		StartTime:       w.StartTime,
		EndTime:         w.EndTime,
		TotalAmount:     w.TotalAmount,
		Status:          w.Status,
		IsPaid:          w.IsPaid,
	}
	return nil
}

// DecodeAppointments accepts a bare array or an object wrapping it under "appointments".
// Anything else decodes as empty.
func DecodeAppointments(b []byte) ([]Appointment, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []Appointment{}, nil
	}
	switch b[0] {
	case '[':
		var out []Appointment
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
		var wrapped struct {
			Appointments []Appointment `json:"appointments"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Appointments == nil {
			return []Appointment{}, nil
		}
		return wrapped.Appointments, nil
	default:
		return []Appointment{}, nil
	}
}

// BookedStarts returns the start times of a booked-slot query result.
func BookedStarts(appts []Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		if a.StartTime != "" {
			out = append(out, a.StartTime)
		}
	}
	return out
}

// CreateAppointmentRequest is the body of the Appointment Creation API.
type CreateAppointmentRequest struct {
	UserID          ID     `json:"userId"`
	DoctorID        ID     `json:"doctorId"`
	AvailabilityID  ID     `json:"availabilityId"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	TotalAmount     string `json:"totalAmount"`
}

type CheckoutRequest struct {
	Amount        float64 `json:"amount"`
	AppointmentID ID      `json:"appointmentId"`
}

type CheckoutSession struct {
	URL string `json:"url"`
}

type DoctorPage struct {
	Doctors []Doctor `json:"doctors"`
	Total   int      `json:"total"`
}

type SpecializationPage struct {
	Specializations []Specialization `json:"specializations"`
	Total           int              `json:"total"`
}

type AvailabilityPage struct {
	Availabilities AvailabilityList `json:"availabilities"`
	Total          int              `json:"total"`
}
