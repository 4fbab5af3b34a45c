package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/appointment/apptest"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/identity"
	redisclient "github.com/hackgods/mindcare/internal/redis"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/therapist"
)

type fixture struct {
	store    *apptest.Store
	notifier *apptest.RecordingNotifier
	svc      *appointment.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := apptest.NewStore()
	notifier := &apptest.RecordingNotifier{}
	svc := appointment.NewService(appointment.Deps{
		Store:    store,
		Locker:   redisclient.NewLocalLocker(),
		Notifier: notifier,
		Hasher:   identity.NewHasher(bcrypt.MinCost),
		Logger:   zap.NewNop(),
	}, config.Config{
		AdminEmail:     "admin@clinic.test",
		ClinicTimezone: time.FixedZone("CST", 8*3600),
	})
	return &fixture{store: store, notifier: notifier, svc: svc}
}

func (f *fixture) addTherapist(name string, onlinePrice int64) therapist.Therapist {
	email := name + "@clinic.test"
	return f.store.AddTherapist(therapist.Therapist{
		Name:              name,
		AccountEmail:      &email,
		ConsultationModes: []therapist.ConsultationMode{therapist.ModeOnline},
		Pricing:           therapist.Pricing{therapist.ModeOnline: decimal.NewFromInt(onlinePrice)},
		IsActive:          true,
	})
}

func bookingInput(email, secret string) appointment.CreateInput {
	return appointment.CreateInput{
		Email:            email,
		IDNumber:         secret,
		ConsultationType: "online",
		Name:             "Lin Mei",
		Phone:            "0912345678",
		MainConcerns:     "sleep problems",
	}
}

func (f *fixture) book(t *testing.T, email string) *appointment.View {
	t.Helper()
	v, err := f.svc.Create(context.Background(), bookingInput(email, "A123456789"))
	require.NoError(t, err)
	return v
}

func futureHour(d time.Duration) time.Time {
	return time.Now().Add(d).UTC().Truncate(time.Hour)
}

func pendingReminders(rows []reminder.ScheduledEmail) []reminder.ScheduledEmail {
	var out []reminder.ScheduledEmail
	for _, e := range rows {
		if e.Status == reminder.StatusPending {
			out = append(out, e)
		}
	}
	return out
}

func TestLifecycle_BookAssignConfirmCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	assert.Equal(t, appointment.StatusPending, v.Status)
	assert.True(t, v.Price.IsZero())
	assert.Nil(t, v.TherapistID)

	v, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(1200)))

	at := futureHour(72 * time.Hour)
	v, err = f.svc.ConfirmTime(ctx, v.ID, at)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, v.Status)
	require.NotNil(t, v.ConfirmedAt)
	require.NotNil(t, v.Slot)
	assert.True(t, v.Slot.SlotTime.Equal(at))

	sl, ok := f.store.SlotAt(x.ID, at)
	require.True(t, ok)
	assert.True(t, sl.IsBooked)

	rems := f.store.Reminders(v.ID)
	require.Len(t, rems, 2)
	for _, e := range rems {
		assert.Equal(t, reminder.StatusPending, e.Status)
		assert.True(t, e.ScheduledTime.Equal(at.Add(-24*time.Hour)))
	}

	v, err = f.svc.UpdateStatus(ctx, v.ID, "cancelled", "")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, v.Status)
	assert.Nil(t, v.SlotID)

	sl, _ = f.store.Slot(sl.ID)
	assert.False(t, sl.IsBooked)
	for _, e := range f.store.Reminders(v.ID) {
		assert.Equal(t, reminder.StatusCancelled, e.Status)
	}

	assert.Equal(t, []appointment.NotificationKind{
		appointment.NotifyBookingReceived,
		appointment.NotifyBookingAcknowledged,
		appointment.NotifyConfirmed,
		appointment.NotifyTherapistConfirmed,
		appointment.NotifyCancelled,
	}, f.notifier.Kinds())

	assert.Equal(t, []string{
		appointment.EventAppointmentCreated,
		appointment.EventTherapistAssigned,
		appointment.EventAppointmentConfirmed,
		appointment.EventStatusChanged,
	}, f.store.Events(v.ID))
}

func TestConfirmTime_ConcurrentSameSlotOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	y := f.addTherapist("yang", 1500)
	at := futureHour(96 * time.Hour)

	ids := make([]uuid.UUID, 2)
	for i := range ids {
		v := f.book(t, "client"+string(rune('a'+i))+"@example.com")
		_, err := f.svc.AssignTherapist(ctx, v.ID, y.ID)
		require.NoError(t, err)
		ids[i] = v.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	start := make(chan struct{})
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.ConfirmTime(ctx, id, at)
		}(i, id)
	}
	close(start)
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, appointment.ErrConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	sl, ok := f.store.SlotAt(y.ID, at)
	require.True(t, ok)
	assert.True(t, sl.IsBooked)

	owners := 0
	for _, id := range ids {
		a, _ := f.store.Appointment(id)
		if a.SlotID != nil {
			owners++
			assert.Equal(t, sl.ID, *a.SlotID)
			assert.Equal(t, appointment.StatusConfirmed, a.Status)
		} else {
			assert.Equal(t, appointment.StatusPending, a.Status)
		}
	}
	assert.Equal(t, 1, owners)
}

func TestConfirmTime_SlotBookedByAnotherAppointment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	y := f.addTherapist("yang", 1500)
	at := futureHour(96 * time.Hour)

	first := f.book(t, "first@example.com")
	second := f.book(t, "second@example.com")
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		_, err := f.svc.AssignTherapist(ctx, id, y.ID)
		require.NoError(t, err)
	}

	_, err := f.svc.ConfirmTime(ctx, first.ID, at)
	require.NoError(t, err)

	_, err = f.svc.ConfirmTime(ctx, second.ID, at)
	require.ErrorIs(t, err, appointment.ErrConflict)

	a, _ := f.store.Appointment(second.ID)
	assert.Nil(t, a.SlotID)
	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Empty(t, f.store.Reminders(second.ID))
}

func TestConfirmTime_ReclaimsOrphanedBookedSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	y := f.addTherapist("yang", 1500)
	at := futureHour(96 * time.Hour)
	orphan := f.store.AddSlot(y.ID, at, true)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, y.ID)
	require.NoError(t, err)

	v, err = f.svc.ConfirmTime(ctx, v.ID, at)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, *v.SlotID)
}

func TestConfirmTime_WithinLeadTimeSchedulesNoReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)

	v, err = f.svc.ConfirmTime(ctx, v.ID, futureHour(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, v.Status)
	assert.Empty(t, f.store.Reminders(v.ID))
}

func TestConfirmTime_ChangingTimeMovesSlotAndReschedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)

	first := futureHour(72 * time.Hour)
	v, err = f.svc.ConfirmTime(ctx, v.ID, first)
	require.NoError(t, err)
	oldSlot := *v.SlotID

	second := futureHour(120 * time.Hour)
	v, err = f.svc.ConfirmTime(ctx, v.ID, second)
	require.NoError(t, err)
	assert.NotEqual(t, oldSlot, *v.SlotID)

	sl, _ := f.store.Slot(oldSlot)
	assert.False(t, sl.IsBooked, "old slot released")

	rems := f.store.Reminders(v.ID)
	assert.Len(t, rems, 4)
	live := pendingReminders(rems)
	require.Len(t, live, 2)
	types := map[reminder.EmailType]int{}
	for _, e := range live {
		types[e.EmailType]++
		assert.True(t, e.ScheduledTime.Equal(second.Add(-24*time.Hour)))
	}
	assert.Equal(t, map[reminder.EmailType]int{reminder.TypeUser24h: 1, reminder.TypeTherapist24h: 1}, types)
}

func TestConfirmTime_RequiresTherapist(t *testing.T) {
	f := newFixture(t)
	v := f.book(t, "client@example.com")

	_, err := f.svc.ConfirmTime(context.Background(), v.ID, futureHour(48*time.Hour))
	require.ErrorIs(t, err, appointment.ErrInvalidState)

	var se *appointment.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, appointment.StatusPending, se.Current)
}

func TestConfirmTime_TerminalAppointment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, v.ID, "rejected", "no availability")
	require.NoError(t, err)

	_, err = f.svc.ConfirmTime(ctx, v.ID, futureHour(48*time.Hour))
	var se *appointment.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, appointment.StatusRejected, se.Current)
}

func TestConfirmTime_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmTime(context.Background(), uuid.New(), futureHour(48*time.Hour))
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	v := f.book(t, "client@example.com")

	_, err := f.svc.UpdateStatus(context.Background(), v.ID, "archived", "")
	require.ErrorIs(t, err, appointment.ErrValidation)

	var ve *appointment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "status")
}

func TestUpdateStatus_UndefinedTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.book(t, "client@example.com")

	_, err := f.svc.UpdateStatus(ctx, v.ID, "completed", "")
	var se *appointment.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, appointment.StatusPending, se.Current)

	_, err = f.svc.UpdateStatus(ctx, v.ID, "confirmed", "")
	require.ErrorIs(t, err, appointment.ErrInvalidState, "confirm needs a slot")
}

func TestUpdateStatus_RejectConfirmedReleasesSlotAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	v, err = f.svc.ConfirmTime(ctx, v.ID, futureHour(72*time.Hour))
	require.NoError(t, err)
	slotID := *v.SlotID

	// confirmed -> rejected is not a lifecycle step
	_, err = f.svc.UpdateStatus(ctx, v.ID, "rejected", "")
	require.ErrorIs(t, err, appointment.ErrInvalidState)

	v, err = f.svc.UpdateStatus(ctx, v.ID, "cancelled", "therapist ill")
	require.NoError(t, err)
	sl, _ := f.store.Slot(slotID)
	assert.False(t, sl.IsBooked)

	// repeating the same status changes nothing
	_, err = f.svc.UpdateStatus(ctx, v.ID, "cancelled", "")
	require.NoError(t, err)
	sl, _ = f.store.Slot(slotID)
	assert.False(t, sl.IsBooked)

	calls := f.notifier.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, appointment.NotifyCancelled, last.Kind)
	assert.Equal(t, "therapist ill", last.Extra["reason"])
}

func TestUpdateStatus_RejectPendingSendsReason(t *testing.T) {
	f := newFixture(t)
	v := f.book(t, "client@example.com")

	_, err := f.svc.UpdateStatus(context.Background(), v.ID, "rejected", "outside our specialties")
	require.NoError(t, err)

	calls := f.notifier.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, appointment.NotifyRejected, last.Kind)
	assert.Equal(t, "client@example.com", last.To.Email)
	assert.Equal(t, "outside our specialties", last.Extra["rejection_reason"])
}

func TestUpdateStatus_ConfirmReservedSlotSchedulesReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	sl := f.store.AddSlot(x.ID, futureHour(72*time.Hour), false)

	in := bookingInput("client@example.com", "A123456789")
	in.SlotID = &sl.ID
	v, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	v, err = f.svc.UpdateStatus(ctx, v.ID, "confirmed", "")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, v.Status)
	assert.Len(t, pendingReminders(f.store.Reminders(v.ID)), 2)
}

func TestCreate_IdentityMismatchOnSecondBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, bookingInput("new@example.com", "A123456789"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, bookingInput("NEW@example.com", "B987654321"))
	require.ErrorIs(t, err, identity.ErrMismatch)
	assert.Equal(t, 1, f.store.AppointmentCount())
}

func TestCreate_ValidationReportsFields(t *testing.T) {
	f := newFixture(t)

	in := bookingInput("not-an-email", "A123456789")
	in.Phone = ""
	in.ConsultationType = "phone"
	in.PreferredPeriods = []appointment.PeriodInput{{Date: "2025-13-01", Periods: []string{"night"}}}

	_, err := f.svc.Create(context.Background(), in)
	var ve *appointment.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "phone")
	assert.Contains(t, ve.Fields, "consultation_type")
	assert.Contains(t, ve.Fields, "preferred_periods[0].date")
	assert.Contains(t, ve.Fields, "preferred_periods[0].periods[0]")
	assert.Zero(t, f.store.AppointmentCount())
}

func TestCreate_StoresDetailAndDeduplicatedPeriods(t *testing.T) {
	f := newFixture(t)

	in := bookingInput("client@example.com", "A123456789")
	in.PreferredPeriods = []appointment.PeriodInput{
		{Date: "2025-08-02", Periods: []string{"morning", "evening", "morning"}},
		{Date: "2025-08-03", Periods: []string{"afternoon"}},
	}
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, v.Detail)
	assert.Equal(t, appointment.UrgencyMedium, v.Detail.Urgency)
	assert.Equal(t, "sleep problems", v.Detail.MainConcerns)
	require.Len(t, v.PreferredPeriods, 3)
	assert.Equal(t, "morning (09:00-12:00)", v.PreferredPeriods[0].Period.Display())
	assert.Equal(t, 3, f.store.PeriodCount(v.ID))
}

func TestCreate_WithTherapistComputesPrice(t *testing.T) {
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	in := bookingInput("client@example.com", "A123456789")
	in.TherapistID = &x.ID
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(1200)))

	in = bookingInput("other@example.com", "A123456789")
	in.ConsultationType = "offline"
	in.TherapistID = &x.ID
	v, err = f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, v.Price.IsZero(), "unpriced mode defaults to zero")
}

func TestCreate_WithSlotReservesIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	sl := f.store.AddSlot(x.ID, futureHour(48*time.Hour), false)

	in := bookingInput("client@example.com", "A123456789")
	in.SlotID = &sl.ID
	v, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, x.ID, *v.TherapistID, "therapist taken from the slot")

	got, _ := f.store.Slot(sl.ID)
	assert.True(t, got.IsBooked)

	in = bookingInput("other@example.com", "A123456789")
	in.SlotID = &sl.ID
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, appointment.ErrConflict)
}

func TestCreate_FailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inactive := f.store.AddTherapist(therapist.Therapist{Name: "retired", IsActive: false})
	sl := f.store.AddSlot(inactive.ID, futureHour(48*time.Hour), false)

	in := bookingInput("client@example.com", "A123456789")
	in.SlotID = &sl.ID
	_, err := f.svc.Create(ctx, in)
	require.ErrorIs(t, err, appointment.ErrValidation)

	got, _ := f.store.Slot(sl.ID)
	assert.False(t, got.IsBooked)
	assert.Zero(t, f.store.AppointmentCount())

	// the identity was not provisioned either, so a different secret works
	_, err = f.svc.Create(ctx, bookingInput("client@example.com", "Z000000000"))
	assert.NoError(t, err)
}

func TestCreate_NotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.Fail = map[appointment.NotificationKind]bool{
		appointment.NotifyBookingReceived:     true,
		appointment.NotifyBookingAcknowledged: true,
	}

	v, err := f.svc.Create(context.Background(), bookingInput("client@example.com", "A123456789"))
	require.NoError(t, err)
	_, ok := f.store.Appointment(v.ID)
	assert.True(t, ok)
	assert.Len(t, f.notifier.Calls(), 2)
}

func TestAssignTherapist_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	y := f.addTherapist("yang", 900)

	v := f.book(t, "client@example.com")

	_, err := f.svc.AssignTherapist(ctx, v.ID, uuid.New())
	require.ErrorIs(t, err, appointment.ErrValidation)

	_, err = f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)

	v, err = f.svc.AssignTherapist(ctx, v.ID, y.ID)
	require.NoError(t, err)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(900)), "reassignment reprices")

	_, err = f.svc.UpdateStatus(ctx, v.ID, "cancelled", "")
	require.NoError(t, err)
	_, err = f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.ErrorIs(t, err, appointment.ErrInvalidState)
}

func TestCancelByOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	sl := f.store.AddSlot(x.ID, futureHour(48*time.Hour), false)

	in := bookingInput("client@example.com", "A123456789")
	in.SlotID = &sl.ID
	v, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.CancelByOwner(ctx, v.ID, "client@example.com", "WRONG")
	require.ErrorIs(t, err, identity.ErrMismatch)

	_, err = f.svc.CancelByOwner(ctx, v.ID, "nobody@example.com", "A123456789")
	require.ErrorIs(t, err, identity.ErrMismatch)

	f.book(t, "intruder@example.com")
	_, err = f.svc.CancelByOwner(ctx, v.ID, "intruder@example.com", "A123456789")
	require.ErrorIs(t, err, identity.ErrMismatch, "someone else's appointment")

	v, err = f.svc.CancelByOwner(ctx, v.ID, "client@example.com", "a123456789")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, v.Status)

	got, _ := f.store.Slot(sl.ID)
	assert.False(t, got.IsBooked)

	calls := f.notifier.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, appointment.NotifyCancelledByOwner, last.Kind)
	assert.Equal(t, appointment.RoleTherapist, last.To.Role)
}

func TestCancelByOwner_OnlyPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmTime(ctx, v.ID, futureHour(72*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.CancelByOwner(ctx, v.ID, "client@example.com", "A123456789")
	var se *appointment.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, appointment.StatusConfirmed, se.Current)
}

func TestDelete_ReleasesSlotAndRemovesDependents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	in := bookingInput("client@example.com", "A123456789")
	in.PreferredPeriods = []appointment.PeriodInput{{Date: "2025-08-02", Periods: []string{"morning"}}}
	v, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	v, err = f.svc.ConfirmTime(ctx, v.ID, futureHour(72*time.Hour))
	require.NoError(t, err)
	slotID := *v.SlotID

	require.NoError(t, f.svc.Delete(ctx, v.ID))

	_, ok := f.store.Appointment(v.ID)
	assert.False(t, ok)
	assert.False(t, f.store.HasDetail(v.ID))
	assert.Zero(t, f.store.PeriodCount(v.ID))
	assert.Empty(t, f.store.Reminders(v.ID))
	sl, _ := f.store.Slot(slotID)
	assert.False(t, sl.IsBooked)

	assert.ErrorIs(t, f.svc.Delete(ctx, v.ID), appointment.ErrAppointmentNotFound)
}

func TestQuery_ReturnsOwnAppointmentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.book(t, "client@example.com")
	second := f.book(t, "client@example.com")
	f.book(t, "someone@example.com")

	views, err := f.svc.Query(ctx, "client@example.com", "A123456789")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)

	_, err = f.svc.Query(ctx, "client@example.com", "nope")
	assert.ErrorIs(t, err, identity.ErrMismatch)
}

func TestListPending_ExcludesOtherStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.book(t, "a@example.com")
	b := f.book(t, "b@example.com")
	_, err := f.svc.UpdateStatus(ctx, a.ID, "rejected", "")
	require.NoError(t, err)

	views, err := f.svc.ListPending(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b.ID, views[0].ID)
	assert.NotNil(t, views[0].Detail)
}

func TestUpdateAdminFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.book(t, "client@example.com")

	room, notes := "room_3", " prefers window seat "
	v, err := f.svc.UpdateAdminFields(ctx, v.ID, &room, &notes)
	require.NoError(t, err)
	require.NotNil(t, v.Room)
	assert.Equal(t, appointment.Room3, *v.Room)
	assert.Equal(t, "prefers window seat", v.AdminNotes)

	bad := "room_9"
	_, err = f.svc.UpdateAdminFields(ctx, v.ID, &bad, nil)
	require.ErrorIs(t, err, appointment.ErrValidation)

	empty := ""
	v, err = f.svc.UpdateAdminFields(ctx, v.ID, &empty, nil)
	require.NoError(t, err)
	assert.Nil(t, v.Room)
	assert.Equal(t, "prefers window seat", v.AdminNotes)
}

// hookLocker runs before while the caller waits for the slot lock.
type hookLocker struct {
	redisclient.Locker
	before func(ctx context.Context)
}

func (l hookLocker) WithSlotLock(ctx context.Context, therapistID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error {
	l.before(ctx)
	return l.Locker.WithSlotLock(ctx, therapistID, at, fn)
}

func TestConfirmTime_TherapistReassignedWhileWaitingForLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	y := f.addTherapist("lin", 1500)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)

	svc := appointment.NewService(appointment.Deps{
		Store: f.store,
		Locker: hookLocker{
			Locker: redisclient.NewLocalLocker(),
			before: func(ctx context.Context) {
				_, err := f.svc.AssignTherapist(ctx, v.ID, y.ID)
				require.NoError(t, err)
			},
		},
		Hasher: identity.NewHasher(bcrypt.MinCost),
		Logger: zap.NewNop(),
	}, config.Config{})

	at := futureHour(72 * time.Hour)
	_, err = svc.ConfirmTime(ctx, v.ID, at)
	require.ErrorIs(t, err, appointment.ErrConflict)

	_, ok := f.store.SlotAt(x.ID, at)
	assert.False(t, ok, "no slot is created under the stale therapist")
	_, ok = f.store.SlotAt(y.ID, at)
	assert.False(t, ok)

	stored, ok := f.store.Appointment(v.ID)
	require.True(t, ok)
	assert.Equal(t, appointment.StatusPending, stored.Status)
	require.NotNil(t, stored.TherapistID)
	assert.Equal(t, y.ID, *stored.TherapistID)

	// a retry locks the current therapist's slot
	v2, err := svc.ConfirmTime(ctx, v.ID, at)
	require.NoError(t, err)
	require.NotNil(t, v2.Slot)
	assert.Equal(t, y.ID, v2.Slot.TherapistID)
}

func TestUpdateStatus_CompletedCancelsPendingReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)
	at := futureHour(72 * time.Hour)
	_, err = f.svc.ConfirmTime(ctx, v.ID, at)
	require.NoError(t, err)
	require.Len(t, pendingReminders(f.store.Reminders(v.ID)), 2)

	v, err = f.svc.UpdateStatus(ctx, v.ID, "completed", "")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, v.Status)
	assert.Empty(t, pendingReminders(f.store.Reminders(v.ID)))

	require.NotNil(t, v.Slot, "a completed appointment keeps its slot")
	sl, ok := f.store.SlotAt(x.ID, at)
	require.True(t, ok)
	assert.True(t, sl.IsBooked)
}

func TestCreate_TrimsEmailAndSecretBeforeValidating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	v, err := f.svc.Create(ctx, bookingInput("  Client@Example.com \n", " A123456789 "))
	require.NoError(t, err)
	require.NotNil(t, v.User)
	assert.Equal(t, "client@example.com", v.User.Email)

	views, err := f.svc.Query(ctx, "client@example.com", "A123456789")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, v.ID, views[0].ID)
}

func TestNewService_DefaultsToInProcessLocker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)

	v := f.book(t, "client@example.com")
	_, err := f.svc.AssignTherapist(ctx, v.ID, x.ID)
	require.NoError(t, err)

	svc := appointment.NewService(appointment.Deps{
		Store:  f.store,
		Hasher: identity.NewHasher(bcrypt.MinCost),
	}, config.Config{})

	v, err = svc.ConfirmTime(ctx, v.ID, futureHour(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, v.Status)
}

func TestListForTherapist_OnlyAssignedAppointments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.addTherapist("xu", 1200)
	y := f.addTherapist("lin", 1500)

	first := f.book(t, "a@example.com")
	second := f.book(t, "b@example.com")
	f.book(t, "c@example.com")
	_, err := f.svc.AssignTherapist(ctx, first.ID, x.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignTherapist(ctx, second.ID, y.ID)
	require.NoError(t, err)

	views, err := f.svc.ListForTherapist(ctx, x.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, first.ID, views[0].ID)
	require.NotNil(t, views[0].Therapist)
	assert.Equal(t, "xu", views[0].Therapist.Name)

	views, err = f.svc.ListForTherapist(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, views)
}
