package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("slot not found")

// AvailableSlot is one bookable (therapist, time) pair.
type AvailableSlot struct {
	ID          uuid.UUID
	TherapistID uuid.UUID
	SlotTime    time.Time
	IsBooked    bool
	CreatedAt   time.Time
}

type Repository interface {
	// GetOrCreate returns the slot for (therapistID, at), inserting it with
	// the given booked flag when it does not exist. An existing row is locked
	// for the rest of the caller's transaction.
	GetOrCreate(ctx context.Context, therapistID uuid.UUID, at time.Time, booked bool) (s *AvailableSlot, created bool, err error)
	GetSlot(ctx context.Context, id uuid.UUID) (*AvailableSlot, error)
	SetBooked(ctx context.Context, id uuid.UUID, booked bool) error
	ListFree(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]AvailableSlot, error)
	// CreateFree inserts unbooked slots, skipping times that already exist.
	CreateFree(ctx context.Context, therapistID uuid.UUID, times []time.Time) (int, error)
}

// Normalize is the canonical form of a slot time: UTC, whole seconds.
// Every lookup by (therapist, time) goes through it so the same instant
// always maps to the same row.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Release frees the slot. Releasing an already free slot is a no-op.
func Release(ctx context.Context, repo Repository, id uuid.UUID) error {
	s, err := repo.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if !s.IsBooked {
		return nil
	}
	return repo.SetBooked(ctx, id, false)
}
