package apptest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

type memTx struct {
	st  *state
	now func() time.Time
}

func (t *memTx) Appointments() appointment.Repository { return &appointments{t} }
func (t *memTx) Slots() slot.Repository { return &slots{t} }
func (t *memTx) Reminders() reminder.Repository { return &reminders{t} }
func (t *memTx) Users() appointment.UserRepository { return &users{t} }
func (t *memTx) Therapists() appointment.TherapistRepository { return &therapists{t} }

// appointments

type appointments struct{ *memTx }

func (r *appointments) InsertAppointment(_ context.Context, a *appointment.Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.SlotID != nil {
		for _, other := range r.st.appointments {
			if other.SlotID != nil && *other.SlotID == *a.SlotID {
				return appointment.ErrConflict
			}
		}
	}
	a.CreatedAt, a.UpdatedAt = r.now(), r.now()
	r.st.appointments[a.ID] = *a
	return nil
}

func (r *appointments) InsertDetail(_ context.Context, d *appointment.Detail) error {
	d.CreatedAt = r.now()
	r.st.details[d.AppointmentID] = *d
	return nil
}

func (r *appointments) InsertPreferredPeriods(_ context.Context, appointmentID uuid.UUID, periods []appointment.PreferredPeriod) error {
	for i := range periods {
		r.st.nextPeriodID++
		periods[i].ID = r.st.nextPeriodID
		periods[i].AppointmentID = appointmentID
		periods[i].CreatedAt = r.now()
		r.st.periods = append(r.st.periods, periods[i])
	}
	return nil
}

func (r *appointments) GetAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	a, ok := r.st.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *appointments) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.GetAppointment(ctx, id)
}

func (r *appointments) GetAppointmentBySlot(_ context.Context, slotID uuid.UUID) (*appointment.Appointment, error) {
	for _, a := range r.st.appointments {
		if a.SlotID != nil && *a.SlotID == slotID {
			cp := a
			return &cp, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (r *appointments) GetDetail(_ context.Context, appointmentID uuid.UUID) (*appointment.Detail, error) {
	d, ok := r.st.details[appointmentID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *appointments) ListPreferredPeriods(_ context.Context, appointmentID uuid.UUID) ([]appointment.PreferredPeriod, error) {
	var out []appointment.PreferredPeriod
	for _, p := range r.st.periods {
		if p.AppointmentID == appointmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *appointments) sorted(keep func(appointment.Appointment) bool) []appointment.Appointment {
	var out []appointment.Appointment
	for _, a := range r.st.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *appointments) ListByUser(_ context.Context, userID uuid.UUID) ([]appointment.Appointment, error) {
	return r.sorted(func(a appointment.Appointment) bool { return a.UserID == userID }), nil
}

func (r *appointments) ListByStatus(_ context.Context, status appointment.Status, limit, offset int) ([]appointment.Appointment, error) {
	return paginate(r.sorted(func(a appointment.Appointment) bool { return a.Status == status }), limit, offset), nil
}

func (r *appointments) ListByTherapist(_ context.Context, therapistID uuid.UUID, limit, offset int) ([]appointment.Appointment, error) {
	return paginate(r.sorted(func(a appointment.Appointment) bool {
		return a.TherapistID != nil && *a.TherapistID == therapistID
	}), limit, offset), nil
}

func paginate(all []appointment.Appointment, limit, offset int) []appointment.Appointment {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (r *appointments) UpdateAppointment(_ context.Context, a *appointment.Appointment, from appointment.Status) error {
	stored, ok := r.st.appointments[a.ID]
	if !ok || stored.Status != from {
		return appointment.ErrAppointmentNotFound
	}
	if a.SlotID != nil {
		for id, other := range r.st.appointments {
			if id != a.ID && other.SlotID != nil && *other.SlotID == *a.SlotID {
				return appointment.ErrConflict
			}
		}
	}
	a.UpdatedAt = r.now()
	r.st.appointments[a.ID] = *a
	return nil
}

func (r *appointments) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	if _, ok := r.st.appointments[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	kept := r.st.periods[:0]
	for _, p := range r.st.periods {
		if p.AppointmentID != id {
			kept = append(kept, p)
		}
	}
	r.st.periods = kept
	delete(r.st.details, id)
	delete(r.st.appointments, id)
	return nil
}

func (r *appointments) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	ev.ID = int64(len(r.st.events) + 1)
	r.st.events = append(r.st.events, ev)
	return nil
}

// slots

type slots struct{ *memTx }

func (r *slots) GetOrCreate(_ context.Context, therapistID uuid.UUID, at time.Time, booked bool) (*slot.AvailableSlot, bool, error) {
	at = slot.Normalize(at)
	for _, sl := range r.st.slots {
		if sl.TherapistID == therapistID && sl.SlotTime.Equal(at) {
			cp := sl
			return &cp, false, nil
		}
	}
	sl := slot.AvailableSlot{ID: uuid.New(), TherapistID: therapistID, SlotTime: at, IsBooked: booked, CreatedAt: r.now()}
	r.st.slots[sl.ID] = sl
	return &sl, true, nil
}

func (r *slots) GetSlot(_ context.Context, id uuid.UUID) (*slot.AvailableSlot, error) {
	sl, ok := r.st.slots[id]
	if !ok {
		return nil, slot.ErrNotFound
	}
	return &sl, nil
}

func (r *slots) SetBooked(_ context.Context, id uuid.UUID, booked bool) error {
	sl, ok := r.st.slots[id]
	if !ok {
		return slot.ErrNotFound
	}
	sl.IsBooked = booked
	r.st.slots[id] = sl
	return nil
}

func (r *slots) ListFree(_ context.Context, therapistID uuid.UUID, from, to time.Time) ([]slot.AvailableSlot, error) {
	var out []slot.AvailableSlot
	for _, sl := range r.st.slots {
		if sl.TherapistID == therapistID && !sl.IsBooked && !sl.SlotTime.Before(from) && sl.SlotTime.Before(to) {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime.Before(out[j].SlotTime) })
	return out, nil
}

func (r *slots) CreateFree(ctx context.Context, therapistID uuid.UUID, times []time.Time) (int, error) {
	n := 0
	for _, t := range times {
		if _, created, _ := r.GetOrCreate(ctx, therapistID, t, false); created {
			n++
		}
	}
	return n, nil
}

// users

type users struct{ *memTx }

func (r *users) GetUserByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (r *users) GetUserByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &u, nil
}

func (r *users) CreateUserIfAbsent(ctx context.Context, u *identity.User) (*identity.User, bool, error) {
	if existing, err := r.GetUserByEmail(ctx, u.Email); err == nil {
		return existing, false, nil
	}
	cp := *u
	cp.CreatedAt = r.now()
	r.st.users[cp.ID] = cp
	return &cp, true, nil
}

// therapists

type therapists struct{ *memTx }

func (r *therapists) GetTherapist(_ context.Context, id uuid.UUID) (*therapist.Therapist, error) {
	t, ok := r.st.therapists[id]
	if !ok {
		return nil, therapist.ErrNotFound
	}
	return &t, nil
}

func (r *therapists) ListTherapists(_ context.Context, activeOnly bool) ([]therapist.Therapist, error) {
	var out []therapist.Therapist
	for _, t := range r.st.therapists {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *therapists) UpdatePricing(_ context.Context, id uuid.UUID, modes []therapist.ConsultationMode, pricing therapist.Pricing) (*therapist.Therapist, error) {
	if err := pricing.Validate(modes); err != nil {
		return nil, err
	}
	t, ok := r.st.therapists[id]
	if !ok {
		return nil, therapist.ErrNotFound
	}
	t.ConsultationModes = append([]therapist.ConsultationMode(nil), modes...)
	t.Pricing = therapist.Pricing{}
	for k, v := range pricing {
		t.Pricing[k] = v
	}
	t.UpdatedAt = r.now()
	r.st.therapists[id] = t
	return &t, nil
}

func (r *therapists) ListRules(_ context.Context, therapistID uuid.UUID) ([]therapist.AvailabilityRule, error) {
	var out []therapist.AvailabilityRule
	for _, rule := range r.st.rules {
		if therapistID == uuid.Nil {
			if t, ok := r.st.therapists[rule.TherapistID]; !ok || !t.IsActive {
				continue
			}
		} else if rule.TherapistID != therapistID {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}
