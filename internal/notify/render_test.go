package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

var fixtureID = uuid.MustParse("6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b")

func fixtureView() *appointment.View {
	room := appointment.Room3
	therapistEmail := "xu@clinic.test"
	return &appointment.View{
		Appointment: appointment.Appointment{
			ID:               fixtureID,
			ConsultationType: therapist.ModeOnline,
			Price:            decimal.NewFromInt(1200),
			Status:           appointment.StatusConfirmed,
			Room:             &room,
		},
		User: &identity.User{Email: "lin@example.com"},
		Detail: &appointment.Detail{
			Name:         "Lin Mei",
			Urgency:      appointment.UrgencyHigh,
			MainConcerns: "trouble sleeping",
		},
		PreferredPeriods: []appointment.PreferredPeriod{
			{Date: time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC), Period: appointment.PeriodMorning},
			{Date: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), Period: appointment.PeriodEvening},
		},
		Slot:      &slot.AvailableSlot{SlotTime: time.Date(2025, 8, 5, 6, 0, 0, 0, time.UTC), IsBooked: true},
		Therapist: &therapist.Therapist{Name: "Dr. Xu Wen", AccountEmail: &therapistEmail},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(time.FixedZone("CST", 8*3600))
	require.NoError(t, err)
	return r
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Golden(t *testing.T) {
	r := newTestRenderer(t)
	v := fixtureView()

	cases := []struct {
		name      string
		recipient string
		extra     map[string]string
	}{
		{"booking_received", "Administrator", nil},
		{"confirmed", "Lin Mei", nil},
		{"rejected", "Lin Mei", map[string]string{"rejection_reason": "outside our specialties"}},
		{string(reminder.TypeTherapist24h), "Dr. Xu Wen", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := r.Render(tc.name, r.Data(v, tc.recipient, tc.extra))
			require.NoError(t, err)

			newGoldie(t).Assert(t, tc.name, []byte("Subject: "+msg.Subject+"\n\n"+msg.Body))
		})
	}
}

func TestRenderer_CoversEveryKind(t *testing.T) {
	r := newTestRenderer(t)

	kinds := []string{
		string(appointment.NotifyBookingReceived),
		string(appointment.NotifyBookingAcknowledged),
		string(appointment.NotifyConfirmed),
		string(appointment.NotifyTherapistConfirmed),
		string(appointment.NotifyRejected),
		string(appointment.NotifyCancelled),
		string(appointment.NotifyCancelledByOwner),
		string(reminder.TypeUser24h),
		string(reminder.TypeTherapist24h),
	}
	for _, k := range kinds {
		assert.True(t, r.Has(k), k)
	}

	_, err := r.Render("unknown", TemplateData{})
	assert.Error(t, err)
}

func TestRenderer_DataFallbacks(t *testing.T) {
	r := newTestRenderer(t)

	v := &appointment.View{Appointment: appointment.Appointment{
		ID:               fixtureID,
		ConsultationType: therapist.ModeOffline,
		Status:           appointment.StatusPending,
	}}
	d := r.Data(v, "", map[string]string{"reason": "schedule clash"})

	assert.Equal(t, "client", d.RecipientName)
	assert.Equal(t, "In-person consultation", d.Consultation)
	assert.Equal(t, "to be assigned", d.Therapist)
	assert.Equal(t, "to be confirmed", d.Time)
	assert.Equal(t, "to be assigned", d.Room)
	assert.Equal(t, "none given", d.Periods)
	assert.Equal(t, "0.00", d.Price)
	assert.Equal(t, "schedule clash", d.Reason)

	d = r.Data(v, "x", map[string]string{"confirmed_datetime": "2025-08-05 14:00"})
	assert.Equal(t, "2025-08-05 14:00", d.Time)
	assert.Equal(t, "not given", d.Reason)
}

func TestParseRenderer_RejectsBrokenTemplate(t *testing.T) {
	_, err := parseRenderer([]byte("x:\n  subject: \"{{.Oops\"\n  body: ok\n"), nil)
	assert.Error(t, err)

	_, err = parseRenderer([]byte("- not a map"), nil)
	assert.Error(t, err)
}
