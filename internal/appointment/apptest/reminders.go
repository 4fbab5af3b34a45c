package apptest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/reminder"
)

// errDuplicatePending mirrors the scheduled_emails_pending_key index.
var errDuplicatePending = errors.New("duplicate pending reminder")

type reminders struct{ *memTx }

func (r *reminders) index(id uuid.UUID) int {
	for i, e := range r.st.emails {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (r *reminders) pendingIndex(id uuid.UUID) (int, error) {
	i := r.index(id)
	if i < 0 || r.st.emails[i].Status != reminder.StatusPending {
		return -1, reminder.ErrNotFound
	}
	return i, nil
}

func (r *reminders) LatestFor(_ context.Context, appointmentID uuid.UUID, t reminder.EmailType) (*reminder.ScheduledEmail, error) {
	var best *reminder.ScheduledEmail
	for i := range r.st.emails {
		e := &r.st.emails[i]
		if e.AppointmentID != appointmentID || e.EmailType != t {
			continue
		}
		if e.Status == reminder.StatusPending {
			cp := *e
			return &cp, nil
		}
		if best == nil || !e.CreatedAt.Before(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, reminder.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *reminders) Insert(_ context.Context, e *reminder.ScheduledEmail) error {
	for _, other := range r.st.emails {
		if other.AppointmentID == e.AppointmentID && other.EmailType == e.EmailType &&
			other.Status == reminder.StatusPending && e.Status == reminder.StatusPending {
			return errDuplicatePending
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt, e.UpdatedAt = r.now(), r.now()
	r.st.emails = append(r.st.emails, *e)
	return nil
}

func (r *reminders) UpdatePending(_ context.Context, id uuid.UUID, recipient string, at time.Time) error {
	i, err := r.pendingIndex(id)
	if err != nil {
		return err
	}
	r.st.emails[i].RecipientEmail = recipient
	r.st.emails[i].ScheduledTime = at
	r.st.emails[i].UpdatedAt = r.now()
	return nil
}

func (r *reminders) CancelPending(_ context.Context, appointmentID uuid.UUID) (int, error) {
	n := 0
	for i := range r.st.emails {
		e := &r.st.emails[i]
		if e.AppointmentID == appointmentID && e.Status == reminder.StatusPending {
			e.Status = reminder.StatusCancelled
			e.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

func (r *reminders) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]reminder.ScheduledEmail, error) {
	var out []reminder.ScheduledEmail
	for _, e := range r.st.emails {
		if e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *reminders) DeleteForAppointment(_ context.Context, appointmentID uuid.UUID) error {
	kept := r.st.emails[:0]
	for _, e := range r.st.emails {
		if e.AppointmentID != appointmentID {
			kept = append(kept, e)
		}
	}
	r.st.emails = kept
	return nil
}

func (r *reminders) ListDue(_ context.Context, now time.Time, limit int) ([]reminder.ScheduledEmail, error) {
	var out []reminder.ScheduledEmail
	for _, e := range r.st.emails {
		if e.Status == reminder.StatusPending && !e.ScheduledTime.After(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *reminders) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	i, err := r.pendingIndex(id)
	if err != nil {
		return err
	}
	r.st.emails[i].Status = reminder.StatusSent
	r.st.emails[i].SentAt = &at
	r.st.emails[i].ErrorMessage = ""
	return nil
}

func (r *reminders) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	i, err := r.pendingIndex(id)
	if err != nil {
		return err
	}
	r.st.emails[i].Status = reminder.StatusFailed
	r.st.emails[i].ErrorMessage = msg
	return nil
}

func (r *reminders) RecordFailure(_ context.Context, id uuid.UUID, msg string, maxRetries int) (*reminder.ScheduledEmail, error) {
	i, err := r.pendingIndex(id)
	if err != nil {
		return nil, err
	}
	e := &r.st.emails[i]
	e.RetryCount++
	e.ErrorMessage = msg
	if e.RetryCount >= maxRetries {
		e.Status = reminder.StatusFailed
	}
	cp := *e
	return &cp, nil
}

func (r *reminders) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	kept := r.st.emails[:0]
	n := 0
	for _, e := range r.st.emails {
		if e.Status != reminder.StatusPending && e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.st.emails = kept
	return n, nil
}

// lockedReminders runs each call under the store lock, outside any
// transaction.
type lockedReminders struct {
	store *Store
}

func (l *lockedReminders) with(fn func(r *reminders)) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	fn(&reminders{&memTx{st: l.store.data, now: l.store.now}})
}

func (l *lockedReminders) LatestFor(ctx context.Context, appointmentID uuid.UUID, t reminder.EmailType) (e *reminder.ScheduledEmail, err error) {
	l.with(func(r *reminders) { e, err = r.LatestFor(ctx, appointmentID, t) })
	return
}

func (l *lockedReminders) Insert(ctx context.Context, e *reminder.ScheduledEmail) (err error) {
	l.with(func(r *reminders) { err = r.Insert(ctx, e) })
	return
}

func (l *lockedReminders) UpdatePending(ctx context.Context, id uuid.UUID, recipient string, at time.Time) (err error) {
	l.with(func(r *reminders) { err = r.UpdatePending(ctx, id, recipient, at) })
	return
}

func (l *lockedReminders) CancelPending(ctx context.Context, appointmentID uuid.UUID) (n int, err error) {
	l.with(func(r *reminders) { n, err = r.CancelPending(ctx, appointmentID) })
	return
}

func (l *lockedReminders) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) (out []reminder.ScheduledEmail, err error) {
	l.with(func(r *reminders) { out, err = r.ListByAppointment(ctx, appointmentID) })
	return
}

func (l *lockedReminders) DeleteForAppointment(ctx context.Context, appointmentID uuid.UUID) (err error) {
	l.with(func(r *reminders) { err = r.DeleteForAppointment(ctx, appointmentID) })
	return
}

func (l *lockedReminders) ListDue(ctx context.Context, now time.Time, limit int) (out []reminder.ScheduledEmail, err error) {
	l.with(func(r *reminders) { out, err = r.ListDue(ctx, now, limit) })
	return
}

func (l *lockedReminders) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (err error) {
	l.with(func(r *reminders) { err = r.MarkSent(ctx, id, at) })
	return
}

func (l *lockedReminders) MarkFailed(ctx context.Context, id uuid.UUID, msg string) (err error) {
	l.with(func(r *reminders) { err = r.MarkFailed(ctx, id, msg) })
	return
}

func (l *lockedReminders) RecordFailure(ctx context.Context, id uuid.UUID, msg string, maxRetries int) (e *reminder.ScheduledEmail, err error) {
	l.with(func(r *reminders) { e, err = r.RecordFailure(ctx, id, msg, maxRetries) })
	return
}

func (l *lockedReminders) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (n int, err error) {
	l.with(func(r *reminders) { n, err = r.DeleteFinishedBefore(ctx, cutoff) })
	return
}
