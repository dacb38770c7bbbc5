package model

import (
	"bytes"
	"encoding/json"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
)

type User struct {
	ID          ID     `json:"userId,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type Specialization struct {
	ID          ID     `json:"specializationId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Doctor struct {
	DoctorID        ID               `json:"doctorId"`
	User            User             `json:"user"`
	Specialization  *Specialization  `json:"specialization,omitempty"`
	ExperienceYears int              `json:"experienceYears,omitempty"`
	ProfileImageURL string           `json:"profileImageUrl,omitempty"`
	Availability    AvailabilityList `json:"availability"`
}

// DisplayName is "Dr. First Last".
func (d Doctor) DisplayName() string {
	name := d.User.FirstName
	if d.User.LastName != "" {
		if name != "" {
			name += " "
		}
		name += d.User.LastName
	}
	return "Dr. " + name
}

// SpecializationName falls back to "General Practitioner".
func (d Doctor) SpecializationName() string {
	if d.Specialization == nil || d.Specialization.Name == "" {
		return "General Practitioner"
	}
	return d.Specialization.Name
}

// Availability is one weekly window as stored by the external API.
type Availability struct {
	ID        ID     `json:"availabilityId"`
	DoctorID  ID     `json:"doctorId,omitempty"`
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Amount    Amount `json:"amount"`
}

type availabilityWire struct {
	AvailabilityID ID     `json:"availabilityId"`
	AltID          ID     `json:"id"`
	DoctorID       ID     `json:"doctorId"`
	DayOfWeek      string `json:"dayOfWeek"`
	Day            string `json:"day"`
	StartTime      string `json:"startTime"`
	Start          string `json:"start"`
	EndTime        string `json:"endTime"`
	End            string `json:"end"`
	Amount         Amount `json:"amount"`
	FeeAmount      Amount `json:"feeAmount"`
	Fee            Amount `json:"fee"`
}

func (a *Availability) UnmarshalJSON(b []byte) error {
	var w availabilityWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*a = Availability{
		ID:        firstID(w.AvailabilityID, w.AltID),
		DoctorID:  w.DoctorID,
		DayOfWeek: firstString(w.DayOfWeek, w.Day),
		StartTime: firstString(w.StartTime, w.Start),
		EndTime:   firstString(w.EndTime, w.End),
		Amount:    firstAmount(w.Amount, w.FeeAmount, w.Fee),
	}
	return nil
}

func (a Availability) Window() availability.Window {
	return availability.Window{
		ID:        a.ID.String(),
		DayOfWeek: a.DayOfWeek,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Fee:       float64(a.Amount),
	}
}

// AvailabilityList decodes anything that is not a JSON array as empty and skips malformed entries.
type AvailabilityList []Availability

func (l *AvailabilityList) UnmarshalJSON(b []byte) error {
	*l = AvailabilityList{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, r := range raw {
		var a Availability
		if err := json.Unmarshal(r, &a); err != nil {
			continue
		}
		*l = append(*l, a)
	}
	return nil
}

func (l AvailabilityList) Windows() []availability.Window {
	out := make([]availability.Window, 0, len(l))
	for _, a := range l {
		out = append(out, a.Window())
	}
	return out
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstID(vals ...ID) ID {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstAmount(vals ...Amount) Amount {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
