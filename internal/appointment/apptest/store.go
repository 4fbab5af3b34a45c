// Package apptest provides an in-memory appointment.Store for tests.
// Transactions run one at a time and roll back by restoring a snapshot.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

type state struct {
	users        map[uuid.UUID]identity.User
	therapists   map[uuid.UUID]therapist.Therapist
	rules        []therapist.AvailabilityRule
	slots        map[uuid.UUID]slot.AvailableSlot
	appointments map[uuid.UUID]appointment.Appointment
	details      map[uuid.UUID]appointment.Detail
	periods      []appointment.PreferredPeriod
	emails       []reminder.ScheduledEmail
	events       []appointment.EventLog
	nextPeriodID int64
}

func newState() *state {
	return &state{
		users:        map[uuid.UUID]identity.User{},
		therapists:   map[uuid.UUID]therapist.Therapist{},
		slots:        map[uuid.UUID]slot.AvailableSlot{},
		appointments: map[uuid.UUID]appointment.Appointment{},
		details:      map[uuid.UUID]appointment.Detail{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.therapists {
		c.therapists[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	c.rules = append(c.rules, s.rules...)
	c.periods = append(c.periods, s.periods...)
	c.emails = append(c.emails, s.emails...)
	c.events = append(c.events, s.events...)
	c.nextPeriodID = s.nextPeriodID
	return c
}

type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx appointment.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	if err := fn(ctx, &memTx{st: s.data, now: s.now}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Seeding and inspection helpers. They take the store lock, so they must not
// be called from inside InTx.

func (s *Store) AddTherapist(t therapist.Therapist) therapist.Therapist {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Pricing == nil {
		t.Pricing = therapist.Pricing{}
	}
	t.CreatedAt, t.UpdatedAt = s.now(), s.now()
	s.data.therapists[t.ID] = t
	return t
}

func (s *Store) AddRule(r therapist.AvailabilityRule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.data.rules = append(s.data.rules, r)
}

func (s *Store) AddSlot(therapistID uuid.UUID, at time.Time, booked bool) slot.AvailableSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := slot.AvailableSlot{ID: uuid.New(), TherapistID: therapistID, SlotTime: slot.Normalize(at), IsBooked: booked, CreatedAt: s.now()}
	s.data.slots[sl.ID] = sl
	return sl
}

func (s *Store) Slot(id uuid.UUID) (slot.AvailableSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.data.slots[id]
	return sl, ok
}

// SlotAt finds the slot for (therapist, time).
func (s *Store) SlotAt(therapistID uuid.UUID, at time.Time) (slot.AvailableSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at = slot.Normalize(at)
	for _, sl := range s.data.slots {
		if sl.TherapistID == therapistID && sl.SlotTime.Equal(at) {
			return sl, true
		}
	}
	return slot.AvailableSlot{}, false
}

func (s *Store) Slots() []slot.AvailableSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]slot.AvailableSlot, 0, len(s.data.slots))
	for _, sl := range s.data.slots {
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime.Before(out[j].SlotTime) })
	return out
}

func (s *Store) Appointment(id uuid.UUID) (appointment.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.appointments[id]
	return a, ok
}

func (s *Store) AppointmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data.appointments)
}

func (s *Store) HasDetail(appointmentID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data.details[appointmentID]
	return ok
}

func (s *Store) PeriodCount(appointmentID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.data.periods {
		if p.AppointmentID == appointmentID {
			n++
		}
	}
	return n
}

func (s *Store) Reminders(appointmentID uuid.UUID) []reminder.ScheduledEmail {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reminder.ScheduledEmail
	for _, e := range s.data.emails {
		if e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out
}

// AddReminder inserts a queue entry directly, for dispatcher-side tests.
func (s *Store) AddReminder(e reminder.ScheduledEmail) reminder.ScheduledEmail {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = reminder.StatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.UpdatedAt = e.CreatedAt
	s.data.emails = append(s.data.emails, e)
	return e
}

func (s *Store) Events(appointmentID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, ev := range s.data.events {
		if ev.AppointmentID != nil && *ev.AppointmentID == appointmentID {
			out = append(out, ev.EventType)
		}
	}
	return out
}

// ReminderRepository exposes the reminder queue outside a transaction, the
// way the dispatcher uses the pool-backed repository.
func (s *Store) ReminderRepository() reminder.Repository {
	return &lockedReminders{store: s}
}
