package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

var statusLabels = map[Status]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
	StatusRejected:  "Rejected",
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusLabels[st]; !ok {
		return "", fieldError("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

func (s Status) Display() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a defined lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// releasesSlot is true for the transitions that give the slot back.
func (s Status) releasesSlot() bool {
	return s == StatusCancelled || s == StatusRejected
}

type Room string

const (
	Room2      Room = "room_2"
	Room3      Room = "room_3"
	Room4      Room = "room_4"
	Room5      Room = "room_5"
	OnlineRoom Room = "online_room"
)

var roomLabels = map[Room]string{
	Room2:      "Room 2",
	Room3:      "Room 3",
	Room4:      "Room 4",
	Room5:      "Room 5",
	OnlineRoom: "Online room",
}

func ParseRoom(s string) (Room, error) {
	r := Room(s)
	if _, ok := roomLabels[r]; !ok {
		return "", fieldError("consultation_room", fmt.Sprintf("unknown room %q", s))
	}
	return r, nil
}

func (r Room) Display() string {
	if label, ok := roomLabels[r]; ok {
		return label
	}
	return string(r)
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

var periodLabels = map[Period]string{
	PeriodMorning:   "morning (09:00-12:00)",
	PeriodAfternoon: "afternoon (13:00-17:00)",
	PeriodEvening:   "evening (18:00-21:00)",
}

func (p Period) Display() string {
	if label, ok := periodLabels[p]; ok {
		return label
	}
	return string(p)
}

type Appointment struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	TherapistID      *uuid.UUID
	SlotID           *uuid.UUID
	ConsultationType therapist.ConsultationMode
	Price            decimal.Decimal
	Status           Status
	Room             *Room
	AdminNotes       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ConfirmedAt      *time.Time
}

// Detail is the intake form stored one-to-one with an appointment.
type Detail struct {
	AppointmentID      uuid.UUID
	Name               string
	Phone              string
	MainConcerns       string
	PreviousTherapy    bool
	Urgency            Urgency
	SpecialNeeds       string
	SpecialtyRequested *int
	CreatedAt          time.Time
}

type PreferredPeriod struct {
	ID            int64
	AppointmentID uuid.UUID
	Date          time.Time // calendar date, midnight UTC
	Period        Period
	CreatedAt     time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// View is an appointment with everything a response or an email needs.
type View struct {
	Appointment
	User             *identity.User
	Detail           *Detail
	PreferredPeriods []PreferredPeriod
	Slot             *slot.AvailableSlot
	Therapist        *therapist.Therapist
}

// ConfirmedTime is the reserved slot time, if any.
func (v *View) ConfirmedTime() *time.Time {
	if v.Slot == nil {
		return nil
	}
	t := v.Slot.SlotTime
	return &t
}
