package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	LeadTime = 24 * time.Hour

	DefaultRetention = 30 * 24 * time.Hour
)

// Target is what the scheduler needs to know about a confirmed appointment.
type Target struct {
	AppointmentID   uuid.UUID
	AppointmentTime time.Time
	UserEmail       string
	TherapistEmail  *string // linked therapist account, may be absent
}

type Scheduler struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger, now: time.Now}
}

type planned struct {
	emailType EmailType
	recipient string
	at        time.Time
}

// plan lists the reminders worth creating. Reminders whose send time has
// already passed are dropped.
func (s *Scheduler) plan(t Target) []planned {
	at := t.AppointmentTime.Add(-LeadTime)
	if !at.After(s.now()) {
		return nil
	}

	out := []planned{{emailType: TypeUser24h, recipient: t.UserEmail, at: at}}
	if t.TherapistEmail != nil && *t.TherapistEmail != "" {
		out = append(out, planned{emailType: TypeTherapist24h, recipient: *t.TherapistEmail, at: at})
	}
	return out
}

// Schedule creates the 24h reminders for a confirmed appointment. A pending
// entry of the same type is moved to the new time; a sent, failed or
// cancelled one is left alone.
func (s *Scheduler) Schedule(ctx context.Context, repo Repository, t Target) (int, error) {
	n := 0
	for _, p := range s.plan(t) {
		existing, err := repo.LatestFor(ctx, t.AppointmentID, p.emailType)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := s.insert(ctx, repo, t.AppointmentID, p); err != nil {
				return n, err
			}
			n++
		case err != nil:
			return n, fmt.Errorf("load %s: %w", p.emailType, err)
		case existing.Status == StatusPending:
			if err := repo.UpdatePending(ctx, existing.ID, p.recipient, p.at); err != nil {
				return n, fmt.Errorf("update %s: %w", p.emailType, err)
			}
			n++
		default:
			s.logger.Info("reminder already finalized, not rescheduling",
				zap.String("appointment_id", t.AppointmentID.String()),
				zap.String("email_type", string(p.emailType)),
				zap.String("status", string(existing.Status)),
			)
		}
	}
	return n, nil
}

// Cancel moves every pending reminder of the appointment to cancelled.
func (s *Scheduler) Cancel(ctx context.Context, repo Repository, appointmentID uuid.UUID) (int, error) {
	n, err := repo.CancelPending(ctx, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("cancel reminders: %w", err)
	}
	if n > 0 {
		s.logger.Info("reminders cancelled",
			zap.String("appointment_id", appointmentID.String()),
			zap.Int("count", n),
		)
	}
	return n, nil
}

// Reschedule cancels the live reminders and creates fresh ones for the new
// time. The cancelled rows stay as history.
func (s *Scheduler) Reschedule(ctx context.Context, repo Repository, t Target) (int, error) {
	if _, err := s.Cancel(ctx, repo, t.AppointmentID); err != nil {
		return 0, err
	}

	n := 0
	for _, p := range s.plan(t) {
		if err := s.insert(ctx, repo, t.AppointmentID, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Cleanup deletes finished entries (sent, failed, cancelled) created more
// than olderThan ago.
func (s *Scheduler) Cleanup(ctx context.Context, repo Repository, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}
	n, err := repo.DeleteFinishedBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup reminders: %w", err)
	}
	s.logger.Info("old reminders removed", zap.Int("count", n), zap.Duration("older_than", olderThan))
	return n, nil
}

func (s *Scheduler) insert(ctx context.Context, repo Repository, appointmentID uuid.UUID, p planned) error {
	e := &ScheduledEmail{
		ID:             uuid.New(),
		AppointmentID:  appointmentID,
		EmailType:      p.emailType,
		RecipientEmail: p.recipient,
		ScheduledTime:  p.at.UTC(),
		Status:         StatusPending,
	}
	if err := repo.Insert(ctx, e); err != nil {
		return fmt.Errorf("insert %s: %w", p.emailType, err)
	}
	s.logger.Debug("reminder scheduled",
		zap.String("appointment_id", appointmentID.String()),
		zap.String("email_type", string(p.emailType)),
		zap.Time("scheduled_time", e.ScheduledTime),
	)
	return nil
}
