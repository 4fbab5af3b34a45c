package appointment

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/therapist"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CreateInput is a booking request as submitted by the requester.
type CreateInput struct {
	Email              string        `json:"email" validate:"required,email,max=254"`
	IDNumber           string        `json:"id_number" validate:"required,min=4,max=32"`
	ConsultationType   string        `json:"consultation_type" validate:"required,oneof=online offline"`
	TherapistID        *uuid.UUID    `json:"therapist,omitempty"`
	SlotID             *uuid.UUID    `json:"slot,omitempty"`
	Name               string        `json:"name" validate:"required,max=100"`
	Phone              string        `json:"phone" validate:"required,max=20"`
	MainConcerns       string        `json:"main_concerns" validate:"required"`
	PreviousTherapy    bool          `json:"previous_therapy"`
	Urgency            string        `json:"urgency" validate:"omitempty,oneof=low medium high"`
	SpecialNeeds       string        `json:"special_needs"`
	SpecialtyRequested *int          `json:"specialty,omitempty" validate:"omitempty,min=1"`
	PreferredPeriods   []PeriodInput `json:"preferred_periods" validate:"omitempty,dive"`
}

type PeriodInput struct {
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
	Periods []string `json:"periods" validate:"required,min=1,dive,oneof=morning afternoon evening"`
}

// validateStruct converts validator failures into a ValidationError keyed
// by the JSON field path.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "invalid value"
}

type normalizedInput struct {
	mode    therapist.ConsultationMode
	detail  Detail
	periods []PreferredPeriod
}

func (in CreateInput) normalize() (normalizedInput, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	if err := validateStruct(in); err != nil {
		return normalizedInput{}, err
	}

	out := normalizedInput{
		mode: therapist.ConsultationMode(in.ConsultationType),
		detail: Detail{
			Name:               strings.TrimSpace(in.Name),
			Phone:              strings.TrimSpace(in.Phone),
			MainConcerns:       strings.TrimSpace(in.MainConcerns),
			PreviousTherapy:    in.PreviousTherapy,
			Urgency:            Urgency(in.Urgency),
			SpecialNeeds:       strings.TrimSpace(in.SpecialNeeds),
			SpecialtyRequested: in.SpecialtyRequested,
		},
	}
	if out.detail.Urgency == "" {
		out.detail.Urgency = UrgencyMedium
	}

	type key struct {
		date   time.Time
		period Period
	}
	seen := make(map[key]bool)
	for _, p := range in.PreferredPeriods {
		date, _ := time.Parse("2006-01-02", p.Date) // checked by the datetime tag
		for _, raw := range p.Periods {
			k := key{date: date, period: Period(raw)}
			if seen[k] {
				continue
			}
			seen[k] = true
			out.periods = append(out.periods, PreferredPeriod{Date: date, Period: k.period})
		}
	}
	return out, nil
}
