// Package reminder keeps the scheduled_emails queue: reminder entries derived
// from a confirmed appointment time, and the batch job that sends them.
package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("scheduled email not found")

type EmailType string

const (
	TypeUser24h      EmailType = "reminder_24h_user"
	TypeTherapist24h EmailType = "reminder_24h_therapist"
)

func (t EmailType) Display() string {
	switch t {
	case TypeUser24h:
		return "24h reminder (client)"
	case TypeTherapist24h:
		return "24h reminder (therapist)"
	}
	return string(t)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type ScheduledEmail struct {
	ID             uuid.UUID
	AppointmentID  uuid.UUID
	EmailType      EmailType
	RecipientEmail string
	ScheduledTime  time.Time
	Status         Status
	SentAt         *time.Time
	ErrorMessage   string
	RetryCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository interface {
	// LatestFor returns the live entry for (appointment, type) if there is
	// one, otherwise the most recent historical entry.
	LatestFor(ctx context.Context, appointmentID uuid.UUID, t EmailType) (*ScheduledEmail, error)
	Insert(ctx context.Context, e *ScheduledEmail) error
	UpdatePending(ctx context.Context, id uuid.UUID, recipient string, at time.Time) error
	CancelPending(ctx context.Context, appointmentID uuid.UUID) (int, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]ScheduledEmail, error)
	DeleteForAppointment(ctx context.Context, appointmentID uuid.UUID) error

	ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledEmail, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed moves a pending entry to failed without touching retry_count.
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
	// RecordFailure bumps retry_count and stores msg. The entry stays pending
	// until retry_count reaches maxRetries.
	RecordFailure(ctx context.Context, id uuid.UUID, msg string, maxRetries int) (*ScheduledEmail, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
