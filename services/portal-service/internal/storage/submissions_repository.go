package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/medibook/libs/db"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/outbox"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the journal and outbox tables when missing.
func EnsureSchema(ctx context.Context, conn db.DBTX) error {
	_, err := conn.Exec(ctx, schemaSQL)
	return err
}

type SubmissionRepository struct {
	db     db.DBTX
	outbox *outbox.Repository
}

func NewSubmissionRepository(conn db.DBTX, outboxRepo *outbox.Repository) *SubmissionRepository {
	return &SubmissionRepository{db: conn, outbox: outboxRepo}
}

type submittedEvent struct {
	SubmissionID    string  `json:"submission_id"`
	UserID          string  `json:"user_id"`
	DoctorID        string  `json:"doctor_id"`
	AvailabilityID  string  `json:"availability_id"`
	AppointmentDate string  `json:"appointment_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Fee             float64 `json:"fee"`
	Outcome         string  `json:"outcome"`
	AppointmentID   string  `json:"appointment_id,omitempty"`
	OccurredAt      string  `json:"occurred_at"`
}

// RecordSubmission journals sub and queues its outbox event in one transaction.
func (r *SubmissionRepository) RecordSubmission(ctx context.Context, sub booking.Submission) error {
	day, err := availability.ParseDate(sub.Date)
	if err != nil {
		return fmt.Errorf("submission date: %w", err)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(submittedEvent{
		SubmissionID:    sub.ID,
		UserID:          sub.UserID,
		DoctorID:        sub.DoctorID,
		AvailabilityID:  sub.AvailabilityID,
		AppointmentDate: sub.Date,
		StartTime:       sub.StartTime,
		EndTime:         sub.EndTime,
		Fee:             sub.Fee,
		Outcome:         sub.Outcome,
		AppointmentID:   sub.AppointmentID,
		OccurredAt:      sub.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_submissions
			(id, user_id, doctor_id, availability_id, appointment_date, start_time, end_time, fee, outcome, message, appointment_id, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, sub.ID, sub.UserID, sub.DoctorID, sub.AvailabilityID, day, sub.StartTime, sub.EndTime, sub.Fee,
		sub.Outcome, sub.Message, sub.AppointmentID, sub.RequestID, sub.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("submission %s already journaled: %w", sub.ID, err)
		}
		return err
	}

	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		EventID:       uuid.NewString(),
		AggregateType: outbox.AggregateSubmission,
		AggregateID:   sub.ID,
		EventType:     outbox.EventAppointmentSubmitted,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type SubmissionRecord struct {
	ID            string
	DoctorID      string
	Date          time.Time
	StartTime     string
	Outcome       string
	AppointmentID string
	CreatedAt     time.Time
}

// ListByUser returns a patient's most recent submissions, newest first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]SubmissionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id::text, doctor_id, appointment_date, start_time, outcome, appointment_id, created_at
		FROM booking_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.DoctorID, &rec.Date, &rec.StartTime, &rec.Outcome, &rec.AppointmentID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
