package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/appointment/apptest"
	"github.com/hackgods/mindcare/internal/therapist"
)

func TestDirectory_ListTherapistsSkipsInactive(t *testing.T) {
	store := apptest.NewStore()
	store.AddTherapist(therapist.Therapist{Name: "active", IsActive: true})
	store.AddTherapist(therapist.Therapist{Name: "retired"})

	got, err := appointment.NewDirectory(store, zap.NewNop()).ListTherapists(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "active", got[0].Name)
}

func TestDirectory_FreeSlots(t *testing.T) {
	ctx := context.Background()
	store := apptest.NewStore()
	x := store.AddTherapist(therapist.Therapist{Name: "xu", IsActive: true})

	base := time.Date(2025, 8, 4, 1, 0, 0, 0, time.UTC)
	store.AddSlot(x.ID, base, false)
	store.AddSlot(x.ID, base.Add(time.Hour), true)
	store.AddSlot(x.ID, base.Add(2*time.Hour), false)
	store.AddSlot(x.ID, base.Add(48*time.Hour), false)

	dir := appointment.NewDirectory(store, nil)
	got, err := dir.FreeSlots(ctx, x.ID, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].SlotTime.Equal(base))
	assert.True(t, got[1].SlotTime.Equal(base.Add(2*time.Hour)))

	_, err = dir.FreeSlots(ctx, x.ID, base, base)
	assert.ErrorIs(t, err, appointment.ErrValidation)

	_, err = dir.FreeSlots(ctx, uuid.New(), base, base.Add(time.Hour))
	assert.ErrorIs(t, err, therapist.ErrNotFound)
}

func TestDirectory_UpdatePricing(t *testing.T) {
	ctx := context.Background()
	store := apptest.NewStore()
	x := store.AddTherapist(therapist.Therapist{Name: "xu", IsActive: true})
	dir := appointment.NewDirectory(store, nil)

	modes := []therapist.ConsultationMode{therapist.ModeOnline, therapist.ModeOffline}
	got, err := dir.UpdatePricing(ctx, x.ID, modes, therapist.Pricing{
		therapist.ModeOnline:  decimal.NewFromInt(1200),
		therapist.ModeOffline: decimal.NewFromInt(1600),
	})
	require.NoError(t, err)
	assert.True(t, got.Pricing.For(therapist.ModeOffline).Equal(decimal.NewFromInt(1600)))

	_, err = dir.UpdatePricing(ctx, x.ID, modes, therapist.Pricing{
		therapist.ModeOnline: decimal.NewFromInt(1200),
	})
	assert.ErrorIs(t, err, appointment.ErrValidation, "offered mode without a price")

	_, err = dir.UpdatePricing(ctx, x.ID, modes[:1], therapist.Pricing{
		therapist.ModeOnline: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, appointment.ErrValidation)
}

func TestDirectory_ExpandAvailabilityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := apptest.NewStore()
	x := store.AddTherapist(therapist.Therapist{Name: "xu", IsActive: true})
	retired := store.AddTherapist(therapist.Therapist{Name: "retired"})

	store.AddRule(therapist.AvailabilityRule{
		TherapistID: x.ID,
		Weekday:     time.Tuesday,
		Start:       therapist.NewClockTime(9, 0),
		End:         therapist.NewClockTime(12, 0),
	})
	store.AddRule(therapist.AvailabilityRule{
		TherapistID: retired.ID,
		Weekday:     time.Tuesday,
		Start:       therapist.NewClockTime(9, 0),
		End:         therapist.NewClockTime(12, 0),
	})

	dir := appointment.NewDirectory(store, nil)
	from := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC) // Monday

	n, err := dir.ExpandAvailability(ctx, from, 2, time.UTC, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = dir.ExpandAvailability(ctx, from, 2, time.UTC, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, sl := range store.Slots() {
		assert.Equal(t, x.ID, sl.TherapistID)
		assert.False(t, sl.IsBooked)
	}
}
