package reminder

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for scheduler and dispatcher tests.
type memRepo struct {
	rows  []*ScheduledEmail
	clock func() time.Time
}

func newMemRepo(clock func() time.Time) *memRepo {
	return &memRepo{clock: clock}
}

func (m *memRepo) find(id uuid.UUID) *ScheduledEmail {
	for _, e := range m.rows {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (m *memRepo) LatestFor(_ context.Context, appointmentID uuid.UUID, t EmailType) (*ScheduledEmail, error) {
	var best *ScheduledEmail
	for _, e := range m.rows {
		if e.AppointmentID != appointmentID || e.EmailType != t {
			continue
		}
		if e.Status == StatusPending {
			cp := *e
			return &cp, nil
		}
		if best == nil || !e.CreatedAt.Before(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memRepo) Insert(_ context.Context, e *ScheduledEmail) error {
	cp := *e
	cp.CreatedAt = m.clock()
	cp.UpdatedAt = cp.CreatedAt
	m.rows = append(m.rows, &cp)
	e.CreatedAt, e.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

func (m *memRepo) UpdatePending(_ context.Context, id uuid.UUID, recipient string, at time.Time) error {
	e := m.find(id)
	if e == nil || e.Status != StatusPending {
		return ErrNotFound
	}
	e.RecipientEmail = recipient
	e.ScheduledTime = at
	return nil
}

func (m *memRepo) CancelPending(_ context.Context, appointmentID uuid.UUID) (int, error) {
	n := 0
	for _, e := range m.rows {
		if e.AppointmentID == appointmentID && e.Status == StatusPending {
			e.Status = StatusCancelled
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]ScheduledEmail, error) {
	var out []ScheduledEmail
	for _, e := range m.rows {
		if e.AppointmentID == appointmentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRepo) DeleteForAppointment(_ context.Context, appointmentID uuid.UUID) error {
	kept := m.rows[:0]
	for _, e := range m.rows {
		if e.AppointmentID != appointmentID {
			kept = append(kept, e)
		}
	}
	m.rows = kept
	return nil
}

func (m *memRepo) ListDue(_ context.Context, now time.Time, limit int) ([]ScheduledEmail, error) {
	var out []ScheduledEmail
	for _, e := range m.rows {
		if e.Status == StatusPending && !e.ScheduledTime.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	e := m.find(id)
	if e == nil || e.Status != StatusPending {
		return ErrNotFound
	}
	e.Status = StatusSent
	e.SentAt = &at
	e.ErrorMessage = ""
	return nil
}

func (m *memRepo) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	e := m.find(id)
	if e == nil || e.Status != StatusPending {
		return ErrNotFound
	}
	e.Status = StatusFailed
	e.ErrorMessage = msg
	return nil
}

func (m *memRepo) RecordFailure(_ context.Context, id uuid.UUID, msg string, maxRetries int) (*ScheduledEmail, error) {
	e := m.find(id)
	if e == nil || e.Status != StatusPending {
		return nil, ErrNotFound
	}
	e.RetryCount++
	e.ErrorMessage = msg
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	kept := m.rows[:0]
	n := 0
	for _, e := range m.rows {
		if e.Status != StatusPending && e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.rows = kept
	return n, nil
}
