package booking

import "errors"

// ValidationError is a local precondition failure. Message is shown to the user as is.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrSelectionIncomplete = &ValidationError{Code: "selection_incomplete", Message: "Please select both date and time."}
	ErrNotAuthenticated    = &ValidationError{Code: "not_authenticated", Message: "User not logged in."}
	ErrNoMatchingWindow    = &ValidationError{Code: "no_matching_window", Message: "Could not find matching availability for this time."}
	ErrUnknownDate         = &ValidationError{Code: "unknown_date", Message: "Please select an available date."}
	ErrInvalidTime         = &ValidationError{Code: "invalid_time", Message: "Please select a valid time."}
	ErrNoDoctor            = &ValidationError{Code: "no_doctor", Message: "Please select a doctor."}
)

// ErrSuperseded is returned to a selection whose result was discarded because a newer one replaced it.
var ErrSuperseded = errors.New("selection superseded by a newer request")

var ErrSessionNotFound = errors.New("booking session not found")
