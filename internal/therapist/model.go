package therapist

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("therapist not found")
	ErrInvalidPricing = errors.New("invalid pricing")
	ErrInvalidMode    = errors.New("invalid consultation mode")
)

type ConsultationMode string

const (
	ModeOnline  ConsultationMode = "online"
	ModeOffline ConsultationMode = "offline"
)

func ParseConsultationMode(s string) (ConsultationMode, error) {
	m := ConsultationMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

func (m ConsultationMode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

func (m ConsultationMode) Display() string {
	switch m {
	case ModeOnline:
		return "Online consultation"
	case ModeOffline:
		return "In-person consultation"
	}
	return string(m)
}

// Pricing maps a consultation mode to the session fee.
type Pricing map[ConsultationMode]decimal.Decimal

// For returns the fee for mode, or zero when the mode has no price yet.
// Zero means "pricing not configured", not free.
func (p Pricing) For(mode ConsultationMode) decimal.Decimal {
	if amount, ok := p[mode]; ok {
		return amount
	}
	return decimal.Zero
}

// Validate runs at write time: every key is a known mode, no amount is
// negative, and every offered mode has a price.
func (p Pricing) Validate(offered []ConsultationMode) error {
	for mode, amount := range p {
		if !mode.Valid() {
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidPricing, mode)
		}
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s price must not be negative", ErrInvalidPricing, mode)
		}
	}
	for _, mode := range offered {
		if !mode.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
		}
		if _, ok := p[mode]; !ok {
			return fmt.Errorf("%w: missing price for %s", ErrInvalidPricing, mode)
		}
	}
	return nil
}

type Therapist struct {
	ID                uuid.UUID
	Name              string
	Title             string
	LicenseNumber     string
	Bio               string
	AccountEmail      *string // linked login, receives reminders
	ConsultationModes []ConsultationMode
	Pricing           Pricing
	Specialties       []string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Offers reports whether the therapist provides the given mode.
func (t *Therapist) Offers(mode ConsultationMode) bool {
	for _, m := range t.ConsultationModes {
		if m == mode {
			return true
		}
	}
	return false
}

// ClockTime is a wall-clock time of day in minutes after midnight.
type ClockTime int

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// AvailabilityRule is a weekly recurring window, e.g. Monday 09:00-12:00.
type AvailabilityRule struct {
	ID          uuid.UUID
	TherapistID uuid.UUID
	Weekday     time.Weekday
	Start       ClockTime
	End         ClockTime
}

func (r AvailabilityRule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("invalid weekday %d", r.Weekday)
	}
	if r.Start < 0 || r.End > 24*60 || r.Start >= r.End {
		return fmt.Errorf("invalid window %s-%s", r.Start, r.End)
	}
	return nil
}

// ExpandRules turns weekly rules into concrete slot start times for the given
// number of weeks starting at from. Wall-clock times are interpreted in loc;
// results are UTC, sorted, and never earlier than from.
func ExpandRules(rules []AvailabilityRule, from time.Time, weeks int, loc *time.Location, step time.Duration) []time.Time {
	if weeks <= 0 || step <= 0 {
		return nil
	}

	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	last := day.AddDate(0, 0, weeks*7)

	var out []time.Time
	for ; day.Before(last); day = day.AddDate(0, 0, 1) {
		for _, r := range rules {
			if r.Weekday != day.Weekday() {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), r.Start.Hour(), r.Start.Minute(), 0, 0, loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), r.End.Hour(), r.End.Minute(), 0, 0, loc)
			for t := start; !t.Add(step).After(end); t = t.Add(step) {
				if t.Before(from) {
					continue
				}
				out = append(out, t.UTC())
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	// overlapping rules produce the same start twice
	deduped := out[:0]
	for _, t := range out {
		if n := len(deduped); n > 0 && t.Equal(deduped[n-1]) {
			continue
		}
		deduped = append(deduped, t)
	}
	return deduped
}
