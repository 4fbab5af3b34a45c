package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

// Directory serves the therapist listing, pricing and free-slot lookups
// that sit next to the booking flow.
type Directory struct {
	store  Store
	logger *zap.Logger
}

func NewDirectory(store Store, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{store: store, logger: logger}
}

func (d *Directory) ListTherapists(ctx context.Context) ([]therapist.Therapist, error) {
	var out []therapist.Therapist
	err := d.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Therapists().ListTherapists(ctx, true)
		return err
	})
	return out, err
}

func (d *Directory) GetTherapist(ctx context.Context, id uuid.UUID) (*therapist.Therapist, error) {
	var out *therapist.Therapist
	err := d.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Therapists().GetTherapist(ctx, id)
		return err
	})
	return out, err
}

// FreeSlots lists unbooked slots of the therapist in [from, to).
func (d *Directory) FreeSlots(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]slot.AvailableSlot, error) {
	if !to.After(from) {
		return nil, fieldError("to", "must be after from")
	}
	var out []slot.AvailableSlot
	err := d.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Therapists().GetTherapist(ctx, therapistID); err != nil {
			return err
		}
		var err error
		out, err = tx.Slots().ListFree(ctx, therapistID, from.UTC(), to.UTC())
		return err
	})
	return out, err
}

// UpdatePricing replaces the therapist's offered modes and fees. The table
// is validated here, at write time.
func (d *Directory) UpdatePricing(ctx context.Context, id uuid.UUID, modes []therapist.ConsultationMode, pricing therapist.Pricing) (*therapist.Therapist, error) {
	if err := pricing.Validate(modes); err != nil {
		return nil, fieldError("pricing", err.Error())
	}

	var out *therapist.Therapist
	err := d.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Therapists().UpdatePricing(ctx, id, modes, pricing)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("therapist pricing updated", zap.String("therapist_id", id.String()))
	return out, nil
}

// ExpandAvailability materializes the weekly rules of every active
// therapist into free slots for the next weeks. Existing slots are kept.
func (d *Directory) ExpandAvailability(ctx context.Context, from time.Time, weeks int, loc *time.Location, step time.Duration) (int, error) {
	total := 0
	err := d.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		total = 0

		rules, err := tx.Therapists().ListRules(ctx, uuid.Nil)
		if err != nil {
			return fmt.Errorf("list availability rules: %w", err)
		}

		byTherapist := make(map[uuid.UUID][]therapist.AvailabilityRule)
		var order []uuid.UUID
		for _, r := range rules {
			if _, ok := byTherapist[r.TherapistID]; !ok {
				order = append(order, r.TherapistID)
			}
			byTherapist[r.TherapistID] = append(byTherapist[r.TherapistID], r)
		}

		for _, id := range order {
			times := therapist.ExpandRules(byTherapist[id], from, weeks, loc, step)
			n, err := tx.Slots().CreateFree(ctx, id, times)
			if err != nil {
				return fmt.Errorf("create slots for %s: %w", id, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	d.logger.Info("availability expanded", zap.Int("weeks", weeks), zap.Int("slots_created", total))
	return total, nil
}
