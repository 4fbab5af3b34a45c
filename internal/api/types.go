package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

type IdentityRequest struct {
	Email    string `json:"email"`
	IDNumber string `json:"id_number"`
}

type AssignTherapistRequest struct {
	TherapistID string `json:"therapist_id"`
}

type ConfirmTimeRequest struct {
	ConfirmedDatetime string `json:"confirmed_datetime"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type UpdateAdminFieldsRequest struct {
	ConsultationRoom *string `json:"consultation_room"`
	AdminNotes       *string `json:"admin_notes"`
}

type UpdatePricingRequest struct {
	ConsultationModes []string                   `json:"consultation_modes"`
	Pricing           map[string]decimal.Decimal `json:"pricing"`
}

type DetailResponse struct {
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	MainConcerns       string `json:"main_concerns"`
	PreviousTherapy    bool   `json:"previous_therapy"`
	Urgency            string `json:"urgency"`
	SpecialNeeds       string `json:"special_needs,omitempty"`
	SpecialtyRequested *int   `json:"specialty,omitempty"`
}

type PeriodResponse struct {
	Date          string `json:"date"`
	Period        string `json:"period"`
	PeriodDisplay string `json:"period_display"`
}

type SlotResponse struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	SlotTime    time.Time `json:"slot_time"`
	IsBooked    bool      `json:"is_booked"`
}

type TherapistSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AppointmentResponse struct {
	ID                      uuid.UUID         `json:"id"`
	Email                   string            `json:"email,omitempty"`
	Status                  string            `json:"status"`
	StatusDisplay           string            `json:"status_display"`
	ConsultationType        string            `json:"consultation_type"`
	ConsultationTypeDisplay string            `json:"consultation_type_display"`
	Price                   string            `json:"price"`
	Therapist               *TherapistSummary `json:"therapist,omitempty"`
	Slot                    *SlotResponse     `json:"slot,omitempty"`
	ConfirmedDatetime       *time.Time        `json:"confirmed_datetime,omitempty"`
	ConfirmedAt             *time.Time        `json:"confirmed_at,omitempty"`
	ConsultationRoom        *string           `json:"consultation_room,omitempty"`
	ConsultationRoomDisplay string            `json:"consultation_room_display,omitempty"`
	AdminNotes              string            `json:"admin_notes,omitempty"`
	Detail                  *DetailResponse   `json:"detail,omitempty"`
	PreferredPeriods        []PeriodResponse  `json:"preferred_periods"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

type TherapistResponse struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	Title             string            `json:"title,omitempty"`
	Bio               string            `json:"bio,omitempty"`
	ConsultationModes []string          `json:"consultation_modes"`
	Pricing           map[string]string `json:"pricing"`
	Specialties       []string          `json:"specialties"`
}

type ErrorResponse struct {
	Error         string            `json:"error"`
	Details       string            `json:"details,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	CurrentStatus string            `json:"current_status,omitempty"`
}

// toAppointmentResponse renders a view. Admin notes are only shown to
// admins.
func toAppointmentResponse(v *appointment.View, admin bool) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                      v.ID,
		Status:                  string(v.Status),
		StatusDisplay:           v.Status.Display(),
		ConsultationType:        string(v.ConsultationType),
		ConsultationTypeDisplay: v.ConsultationType.Display(),
		Price:                   v.Price.StringFixed(2),
		ConfirmedDatetime:       v.ConfirmedTime(),
		ConfirmedAt:             v.ConfirmedAt,
		PreferredPeriods:        make([]PeriodResponse, 0, len(v.PreferredPeriods)),
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
	}
	if v.User != nil {
		resp.Email = v.User.Email
	}
	if v.Therapist != nil {
		resp.Therapist = &TherapistSummary{ID: v.Therapist.ID, Name: v.Therapist.Name}
	}
	if v.Slot != nil {
		s := toSlotResponse(*v.Slot)
		resp.Slot = &s
	}
	if v.Room != nil {
		room := string(*v.Room)
		resp.ConsultationRoom = &room
		resp.ConsultationRoomDisplay = v.Room.Display()
	}
	if admin {
		resp.AdminNotes = v.AdminNotes
	}
	if d := v.Detail; d != nil {
		resp.Detail = &DetailResponse{
			Name:               d.Name,
			Phone:              d.Phone,
			MainConcerns:       d.MainConcerns,
			PreviousTherapy:    d.PreviousTherapy,
			Urgency:            string(d.Urgency),
			SpecialNeeds:       d.SpecialNeeds,
			SpecialtyRequested: d.SpecialtyRequested,
		}
	}
	for _, p := range v.PreferredPeriods {
		resp.PreferredPeriods = append(resp.PreferredPeriods, PeriodResponse{
			Date:          p.Date.Format("2006-01-02"),
			Period:        string(p.Period),
			PeriodDisplay: p.Period.Display(),
		})
	}
	return resp
}

func toAppointmentList(views []appointment.View, admin bool) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(views))
	for i := range views {
		out = append(out, toAppointmentResponse(&views[i], admin))
	}
	return out
}

func toSlotResponse(s slot.AvailableSlot) SlotResponse {
	return SlotResponse{ID: s.ID, TherapistID: s.TherapistID, SlotTime: s.SlotTime, IsBooked: s.IsBooked}
}

func toTherapistResponse(t *therapist.Therapist) TherapistResponse {
	resp := TherapistResponse{
		ID:                t.ID,
		Name:              t.Name,
		Title:             t.Title,
		Bio:               t.Bio,
		ConsultationModes: make([]string, 0, len(t.ConsultationModes)),
		Pricing:           make(map[string]string, len(t.Pricing)),
		Specialties:       append([]string{}, t.Specialties...),
	}
	for _, m := range t.ConsultationModes {
		resp.ConsultationModes = append(resp.ConsultationModes, string(m))
	}
	for m, amount := range t.Pricing {
		resp.Pricing[string(m)] = amount.StringFixed(2)
	}
	return resp
}
