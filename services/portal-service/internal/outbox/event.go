package outbox

// Event is the envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateSubmission       = "booking_submission"
	EventAppointmentSubmitted = "portal.appointment.submitted.v1"
)
