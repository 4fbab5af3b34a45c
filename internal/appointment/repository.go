package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

// Repository contains the appointment-side DB interactions. All methods run
// inside the transaction of the Tx that produced the repository.
type Repository interface {
	InsertAppointment(ctx context.Context, a *Appointment) error
	InsertDetail(ctx context.Context, d *Detail) error
	InsertPreferredPeriods(ctx context.Context, appointmentID uuid.UUID, periods []PreferredPeriod) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetAppointmentForUpdate also locks the row until the transaction ends.
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentBySlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, appointmentID uuid.UUID) (*Detail, error)
	ListPreferredPeriods(ctx context.Context, appointmentID uuid.UUID) ([]PreferredPeriod, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Appointment, error)
	ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]Appointment, error)

	// UpdateAppointment writes a only if the stored status still equals from.
	UpdateAppointment(ctx context.Context, a *Appointment, from Status) error
	// DeleteAppointment removes the appointment with its detail and
	// preferred periods. Slot release and reminder cleanup are the caller's.
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	InsertEvent(ctx context.Context, ev EventLog) error
}

type UserRepository interface {
	identity.Repository
	GetUserByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type TherapistRepository interface {
	GetTherapist(ctx context.Context, id uuid.UUID) (*therapist.Therapist, error)
	ListTherapists(ctx context.Context, activeOnly bool) ([]therapist.Therapist, error)
	UpdatePricing(ctx context.Context, id uuid.UUID, modes []therapist.ConsultationMode, pricing therapist.Pricing) (*therapist.Therapist, error)
	ListRules(ctx context.Context, therapistID uuid.UUID) ([]therapist.AvailabilityRule, error)
}

// Tx hands out repositories bound to one transaction.
type Tx interface {
	Appointments() Repository
	Slots() slot.Repository
	Reminders() reminder.Repository
	Users() UserRepository
	Therapists() TherapistRepository
}

// Store runs units of work atomically. fn may be invoked more than once when
// the backend retries a serialization failure, so it must not have effects
// outside tx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
