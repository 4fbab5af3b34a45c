package main

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/db"
	"github.com/hackgods/mindcare/internal/logging"
	"github.com/hackgods/mindcare/internal/therapist"
)

const (
	therapistCount = 12
	expandWeeks    = 4
)

var specialties = []string{
	"Anxiety",
	"Depression",
	"Couples",
	"Family",
	"Trauma",
	"Sleep",
	"Grief",
	"Adolescents",
}

var titles = []string{
	"Clinical Psychologist",
	"Counselling Psychologist",
	"Licensed Therapist",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}
	logger := logging.New(cfg.Env)
	defer logger.Sync()

	logger.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedTherapists(ctx, therapist.NewPgRepository(pool), therapistCount, logger); err != nil {
		logger.Fatal("seed therapists", zap.Error(err))
	}

	dir := appointment.NewDirectory(appointment.NewPgStore(pool), logger)
	n, err := dir.ExpandAvailability(ctx, time.Now(), expandWeeks, cfg.ClinicTimezone, cfg.SlotDuration)
	if err != nil {
		logger.Fatal("expand availability", zap.Error(err))
	}

	logger.Info("seed complete", zap.Int("therapists", therapistCount), zap.Int("slots", n))
}

func seedTherapists(ctx context.Context, repo *therapist.PgRepository, count int, logger *zap.Logger) error {
	for i := 0; i < count; i++ {
		t := fakeTherapist()
		if err := repo.CreateTherapist(ctx, &t); err != nil {
			return err
		}
		for _, rule := range fakeRules(t) {
			if err := repo.CreateRule(ctx, &rule); err != nil {
				return err
			}
		}
		logger.Debug("therapist seeded", zap.String("id", t.ID.String()), zap.String("name", t.Name))
	}
	return nil
}

func fakeTherapist() therapist.Therapist {
	modes := []therapist.ConsultationMode{therapist.ModeOnline}
	pricing := therapist.Pricing{
		therapist.ModeOnline: decimal.NewFromInt(int64(gofakeit.Number(8, 20) * 100)),
	}
	if gofakeit.Bool() {
		modes = append(modes, therapist.ModeOffline)
		pricing[therapist.ModeOffline] = decimal.NewFromInt(int64(gofakeit.Number(12, 30) * 100))
	}

	var email *string
	if gofakeit.Number(0, 3) > 0 {
		e := gofakeit.Email()
		email = &e
	}

	focus := gofakeit.RandomString(specialties)
	return therapist.Therapist{
		Name:              gofakeit.Name(),
		Title:             gofakeit.RandomString(titles),
		LicenseNumber:     gofakeit.Numerify("PSY-######"),
		Bio:               "Works mainly with " + focus + " concerns.",
		AccountEmail:      email,
		ConsultationModes: modes,
		Pricing:           pricing,
		Specialties:       []string{focus, gofakeit.RandomString(specialties)},
		IsActive:          true,
	}
}

// fakeRules gives each therapist three weekday half-day windows.
func fakeRules(t therapist.Therapist) []therapist.AvailabilityRule {
	windows := [][2]int{{9, 12}, {13, 17}, {18, 21}}

	seen := make(map[time.Weekday]bool)
	var out []therapist.AvailabilityRule
	for len(out) < 3 {
		day := time.Weekday(gofakeit.Number(1, 5))
		if seen[day] {
			continue
		}
		seen[day] = true
		w := windows[gofakeit.Number(0, len(windows)-1)]
		out = append(out, therapist.AvailabilityRule{
			TherapistID: t.ID,
			Weekday:     day,
			Start:       therapist.NewClockTime(w[0], 0),
			End:         therapist.NewClockTime(w[1], 0),
		})
	}
	return out
}
