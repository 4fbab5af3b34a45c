package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/identity"
	redisclient "github.com/hackgods/mindcare/internal/redis"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventTherapistAssigned    = "THERAPIST_ASSIGNED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventStatusChanged        = "STATUS_CHANGED"
	EventCancelledByOwner     = "CANCELLED_BY_OWNER"
	EventAdminFieldsUpdated   = "ADMIN_FIELDS_UPDATED"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Deps struct {
	Store     Store
	Locker    redisclient.Locker
	Notifier  Notifier
	Reminders *reminder.Scheduler
	Hasher    identity.Hasher
	Logger    *zap.Logger
}

// Service is the appointment lifecycle. Authorization happens before it is
// called; the only identity check it performs itself is the owner re-proof
// on Query and CancelByOwner.
type Service struct {
	store     Store
	locker    redisclient.Locker
	notifier  Notifier
	reminders *reminder.Scheduler
	hasher    identity.Hasher
	logger    *zap.Logger
	cfg       config.Config
	now       func() time.Time
}

func NewService(d Deps, cfg config.Config) *Service {
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Reminders == nil {
		d.Reminders = reminder.NewScheduler(d.Logger)
	}
	if d.Locker == nil {
		d.Locker = redisclient.NewLocalLocker()
	}
	if cfg.ClinicTimezone == nil {
		cfg.ClinicTimezone = time.UTC
	}
	return &Service{
		store:     d.Store,
		locker:    d.Locker,
		notifier:  d.Notifier,
		reminders: d.Reminders,
		hasher:    d.Hasher,
		logger:    d.Logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create books an appointment. The requester identity, the appointment, its
// intake detail and preferred periods are written in one transaction; a slot
// given up front is reserved in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*View, error) {
	norm, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var view *View
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := identity.ResolveOrCreate(ctx, tx.Users(), s.hasher, in.Email, in.IDNumber)
		if err != nil {
			return err
		}

		appt := &Appointment{
			ID:               uuid.New(),
			UserID:           user.ID,
			ConsultationType: norm.mode,
			Status:           StatusPending,
		}

		therapistID := in.TherapistID
		if in.SlotID != nil {
			sl, err := tx.Slots().GetSlot(ctx, *in.SlotID)
			if err != nil {
				if errors.Is(err, slot.ErrNotFound) {
					return fieldError("slot", "unknown slot")
				}
				return fmt.Errorf("load slot: %w", err)
			}
			if therapistID != nil && *therapistID != sl.TherapistID {
				return fieldError("slot", "slot belongs to a different therapist")
			}
			if sl.IsBooked {
				return ErrConflict
			}
			if err := tx.Slots().SetBooked(ctx, sl.ID, true); err != nil {
				return fmt.Errorf("reserve slot: %w", err)
			}
			therapistID = &sl.TherapistID
			appt.SlotID = &sl.ID
		}

		if therapistID != nil {
			t, err := s.loadAssignableTherapist(ctx, tx, *therapistID, "therapist")
			if err != nil {
				return err
			}
			appt.TherapistID = &t.ID
			appt.Price = t.Pricing.For(norm.mode)
		}

		if err := tx.Appointments().InsertAppointment(ctx, appt); err != nil {
			return err
		}

		detail := norm.detail
		detail.AppointmentID = appt.ID
		if err := tx.Appointments().InsertDetail(ctx, &detail); err != nil {
			return err
		}

		periods := append([]PreferredPeriod(nil), norm.periods...)
		if err := tx.Appointments().InsertPreferredPeriods(ctx, appt.ID, periods); err != nil {
			return err
		}

		if err := s.logEvent(ctx, tx, appt.ID, EventAppointmentCreated, map[string]any{
			"user_id":           user.ID.String(),
			"consultation_type": string(norm.mode),
			"therapist_id":      uuidString(appt.TherapistID),
			"slot_id":           uuidString(appt.SlotID),
		}); err != nil {
			return err
		}

		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment created",
		zap.String("appointment_id", view.ID.String()),
		zap.String("consultation_type", string(view.ConsultationType)),
		zap.Bool("therapist_assigned", view.TherapistID != nil),
	)

	s.notify(ctx, NotifyBookingReceived, view, Recipient{Email: s.cfg.AdminEmail, Name: "Administrator", Role: RoleAdmin}, nil)
	s.notify(ctx, NotifyBookingAcknowledged, view, requesterOf(view), nil)

	return view, nil
}

// AssignTherapist attaches a therapist to a pending appointment and prices
// it from the therapist's table for the stored consultation mode. A pending
// appointment without a reserved slot may be reassigned.
func (s *Service) AssignTherapist(ctx context.Context, id, therapistID uuid.UUID) (*View, error) {
	var view *View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status != StatusPending {
			return &StateError{Op: "assign therapist", Current: appt.Status}
		}
		if appt.SlotID != nil && (appt.TherapistID == nil || *appt.TherapistID != therapistID) {
			return &StateError{Op: "assign therapist", Current: appt.Status, Reason: "a slot of another therapist is already reserved"}
		}

		t, err := s.loadAssignableTherapist(ctx, tx, therapistID, "therapist_id")
		if err != nil {
			return err
		}

		previous := appt.TherapistID
		appt.TherapistID = &t.ID
		appt.Price = t.Pricing.For(appt.ConsultationType)
		if !t.Offers(appt.ConsultationType) {
			s.logger.Warn("therapist does not offer the requested mode",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("therapist_id", t.ID.String()),
				zap.String("consultation_type", string(appt.ConsultationType)),
			)
		}

		if err := tx.Appointments().UpdateAppointment(ctx, appt, StatusPending); err != nil {
			return err
		}
		if err := s.logEvent(ctx, tx, appt.ID, EventTherapistAssigned, map[string]any{
			"therapist_id":          t.ID.String(),
			"previous_therapist_id": uuidString(previous),
			"price":                 appt.Price.StringFixed(2),
		}); err != nil {
			return err
		}

		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ConfirmTime reserves the slot (therapist, at) for the appointment and
// confirms it. The slot is resolved or created, checked and booked inside
// one serializable transaction; a slot booked by another appointment is a
// Conflict. Confirming an already confirmed appointment at a new time moves
// it: the old slot is released and reminders are rescheduled.
func (s *Service) ConfirmTime(ctx context.Context, id uuid.UUID, at time.Time) (*View, error) {
	at = slot.Normalize(at)

	var therapistID uuid.UUID
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.Appointments().GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := confirmable(appt); err != nil {
			return err
		}
		therapistID = *appt.TherapistID
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		view     *View
		moved    bool
		reminded int
	)
	err = s.locker.WithSlotLock(ctx, therapistID, at, func(lockCtx context.Context) error {
		return s.store.InTx(lockCtx, func(ctx context.Context, tx Tx) error {
			moved, reminded = false, 0

			appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := confirmable(appt); err != nil {
				return err
			}
			// the lock is keyed on the therapist read before it was taken
			if *appt.TherapistID != therapistID {
				return fmt.Errorf("%w: therapist changed while confirming", ErrConflict)
			}
			from := appt.Status

			sl, created, err := tx.Slots().GetOrCreate(ctx, *appt.TherapistID, at, true)
			if err != nil {
				return fmt.Errorf("resolve slot: %w", err)
			}

			if !created && sl.IsBooked {
				owner, err := tx.Appointments().GetAppointmentBySlot(ctx, sl.ID)
				switch {
				case err == nil && owner.ID != appt.ID:
					return ErrConflict
				case errors.Is(err, ErrAppointmentNotFound):
					s.logger.Warn("reclaiming booked slot with no appointment",
						zap.String("slot_id", sl.ID.String()),
						zap.String("appointment_id", appt.ID.String()),
					)
				case err != nil:
					return fmt.Errorf("load slot owner: %w", err)
				}
			}

			if appt.SlotID != nil && *appt.SlotID != sl.ID {
				if err := slot.Release(ctx, tx.Slots(), *appt.SlotID); err != nil {
					return fmt.Errorf("release previous slot: %w", err)
				}
				moved = from == StatusConfirmed
			}
			if !sl.IsBooked {
				if err := tx.Slots().SetBooked(ctx, sl.ID, true); err != nil {
					return fmt.Errorf("book slot: %w", err)
				}
				sl.IsBooked = true
			}

			confirmedAt := s.now().UTC()
			appt.SlotID = &sl.ID
			appt.Status = StatusConfirmed
			appt.ConfirmedAt = &confirmedAt
			if err := tx.Appointments().UpdateAppointment(ctx, appt, from); err != nil {
				return err
			}

			view, err = s.loadView(ctx, tx, appt)
			if err != nil {
				return err
			}

			target := reminderTarget(view)
			if moved {
				reminded, err = s.reminders.Reschedule(ctx, tx.Reminders(), target)
			} else {
				reminded, err = s.reminders.Schedule(ctx, tx.Reminders(), target)
			}
			if err != nil {
				return err
			}

			return s.logEvent(ctx, tx, appt.ID, EventAppointmentConfirmed, map[string]any{
				"slot_id":     sl.ID.String(),
				"slot_time":   sl.SlotTime,
				"rescheduled": moved,
				"reminders":   reminded,
			})
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: slot is being booked, retry", ErrConflict)
		}
		return nil, err
	}

	log := s.logger.With(zap.String("appointment_id", view.ID.String()))
	log.Info("appointment confirmed",
		zap.Time("slot_time", at),
		zap.Bool("rescheduled", moved),
		zap.Int("reminders", reminded),
	)
	if view.Price.IsZero() {
		log.Warn("confirmed appointment has no price configured",
			zap.String("consultation_type", string(view.ConsultationType)),
		)
	}

	extra := map[string]string{"confirmed_datetime": at.In(s.cfg.ClinicTimezone).Format("2006-01-02 15:04")}
	s.notify(ctx, NotifyConfirmed, view, requesterOf(view), extra)
	if to, ok := therapistOf(view); ok {
		s.notify(ctx, NotifyTherapistConfirmed, view, to, extra)
	}

	return view, nil
}

func confirmable(a *Appointment) error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return &StateError{Op: "confirm time", Current: a.Status}
	}
	if a.TherapistID == nil {
		return &StateError{Op: "confirm time", Current: a.Status, Reason: "no therapist assigned"}
	}
	return nil
}

// UpdateStatus is the generic admin transition. Moving to cancelled or
// rejected releases the slot and cancels pending reminders in the same
// transaction; moving to completed keeps the slot but cancels pending
// reminders. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus, reason string) (*View, error) {
	to, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var (
		view    *View
		from    Status
		changed bool
	)
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		changed = false

		appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = appt.Status

		if from != to {
			if !CanTransition(from, to) {
				return &StateError{Op: "change status to " + string(to), Current: from}
			}
			if to == StatusConfirmed && appt.SlotID == nil {
				return &StateError{Op: "change status to confirmed", Current: from, Reason: "no time confirmed yet, use confirm-time"}
			}

			released := uuidString(appt.SlotID)
			if to.releasesSlot() {
				if err := s.releaseResources(ctx, tx, appt); err != nil {
					return err
				}
			}
			if to == StatusCompleted {
				if _, err := s.reminders.Cancel(ctx, tx.Reminders(), appt.ID); err != nil {
					return err
				}
			}
			if to == StatusConfirmed && appt.ConfirmedAt == nil {
				now := s.now().UTC()
				appt.ConfirmedAt = &now
			}

			appt.Status = to
			if err := tx.Appointments().UpdateAppointment(ctx, appt, from); err != nil {
				return err
			}

			// a slot reserved at booking time gets its reminders once confirmed
			if to == StatusConfirmed {
				v, err := s.loadView(ctx, tx, appt)
				if err != nil {
					return err
				}
				if _, err := s.reminders.Schedule(ctx, tx.Reminders(), reminderTarget(v)); err != nil {
					return err
				}
			}

			payload := map[string]any{"from": string(from), "to": string(to)}
			if reason != "" {
				payload["reason"] = reason
			}
			if to.releasesSlot() && released != "" {
				payload["released_slot_id"] = released
			}
			if err := s.logEvent(ctx, tx, appt.ID, EventStatusChanged, payload); err != nil {
				return err
			}
			changed = true
		}

		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return view, nil
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", view.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	switch to {
	case StatusConfirmed:
		s.notify(ctx, NotifyConfirmed, view, requesterOf(view), nil)
		if rcpt, ok := therapistOf(view); ok {
			s.notify(ctx, NotifyTherapistConfirmed, view, rcpt, nil)
		}
	case StatusRejected:
		s.notify(ctx, NotifyRejected, view, requesterOf(view), map[string]string{"rejection_reason": reason})
	case StatusCancelled:
		s.notify(ctx, NotifyCancelled, view, requesterOf(view), map[string]string{"reason": reason})
	}
	return view, nil
}

// CancelByOwner lets the requester withdraw a pending appointment after
// re-proving their identity.
func (s *Service) CancelByOwner(ctx context.Context, id uuid.UUID, email, secret string) (*View, error) {
	var view *View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := identity.Verify(ctx, tx.Users(), s.hasher, email, secret)
		if err != nil {
			return err
		}

		appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if appt.UserID != user.ID {
			return identity.ErrMismatch
		}
		if appt.Status != StatusPending {
			return &StateError{Op: "cancel", Current: appt.Status, Reason: "only pending appointments can be cancelled by the requester"}
		}

		if err := s.releaseResources(ctx, tx, appt); err != nil {
			return err
		}
		appt.Status = StatusCancelled
		if err := tx.Appointments().UpdateAppointment(ctx, appt, StatusPending); err != nil {
			return err
		}
		if err := s.logEvent(ctx, tx, appt.ID, EventCancelledByOwner, map[string]any{"user_id": user.ID.String()}); err != nil {
			return err
		}

		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment cancelled by requester", zap.String("appointment_id", view.ID.String()))

	to, ok := therapistOf(view)
	if !ok {
		to = Recipient{Email: s.cfg.AdminEmail, Name: "Administrator", Role: RoleAdmin}
	}
	s.notify(ctx, NotifyCancelledByOwner, view, to, nil)
	return view, nil
}

// Delete removes the appointment. Its slot is released and its dependent
// rows are removed in the same transaction.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if appt.SlotID != nil {
			if err := slot.Release(ctx, tx.Slots(), *appt.SlotID); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		if err := tx.Reminders().DeleteForAppointment(ctx, appt.ID); err != nil {
			return fmt.Errorf("delete reminders: %w", err)
		}
		if err := tx.Appointments().DeleteAppointment(ctx, appt.ID); err != nil {
			return err
		}

		return s.logEvent(ctx, tx, appt.ID, EventAppointmentDeleted, map[string]any{
			"status":  string(appt.Status),
			"slot_id": uuidString(appt.SlotID),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("appointment deleted", zap.String("appointment_id", id.String()))
	return nil
}

// UpdateAdminFields sets the consultation room and admin notes. A nil
// argument leaves the field unchanged; an empty room clears it.
func (s *Service) UpdateAdminFields(ctx context.Context, id uuid.UUID, room, notes *string) (*View, error) {
	var newRoom *Room
	if room != nil && *room != "" {
		r, err := ParseRoom(*room)
		if err != nil {
			return nil, err
		}
		newRoom = &r
	}

	var view *View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.Appointments().GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if room != nil {
			appt.Room = newRoom
		}
		if notes != nil {
			appt.AdminNotes = strings.TrimSpace(*notes)
		}
		if err := tx.Appointments().UpdateAppointment(ctx, appt, appt.Status); err != nil {
			return err
		}
		if err := s.logEvent(ctx, tx, appt.ID, EventAdminFieldsUpdated, map[string]any{
			"room_changed":  room != nil,
			"notes_changed": notes != nil,
		}); err != nil {
			return err
		}

		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Get retrieves a fully hydrated appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	var view *View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.Appointments().GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		view, err = s.loadView(ctx, tx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Query returns every appointment of the identity, newest first.
func (s *Service) Query(ctx context.Context, email, secret string) ([]View, error) {
	var views []View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		views = nil

		user, err := identity.Verify(ctx, tx.Users(), s.hasher, email, secret)
		if err != nil {
			return err
		}
		appts, err := tx.Appointments().ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list appointments by user: %w", err)
		}
		views, err = s.loadViews(ctx, tx, appts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ListPending is the admin queue, newest first.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]View, error) {
	limit, offset = page(limit, offset)

	var views []View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appts, err := tx.Appointments().ListByStatus(ctx, StatusPending, limit, offset)
		if err != nil {
			return fmt.Errorf("list pending appointments: %w", err)
		}
		views, err = s.loadViews(ctx, tx, appts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ListForTherapist returns the appointments assigned to a therapist, newest
// first.
func (s *Service) ListForTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]View, error) {
	limit, offset = page(limit, offset)

	var views []View
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appts, err := tx.Appointments().ListByTherapist(ctx, therapistID, limit, offset)
		if err != nil {
			return fmt.Errorf("list appointments by therapist: %w", err)
		}
		views, err = s.loadViews(ctx, tx, appts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ReminderView loads what a reminder email renders. It satisfies the lookup
// the reminder sender needs.
func (s *Service) ReminderView(ctx context.Context, id uuid.UUID) (*View, error) {
	return s.Get(ctx, id)
}

func (s *Service) releaseResources(ctx context.Context, tx Tx, appt *Appointment) error {
	if appt.SlotID != nil {
		if err := slot.Release(ctx, tx.Slots(), *appt.SlotID); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		appt.SlotID = nil
	}
	if _, err := s.reminders.Cancel(ctx, tx.Reminders(), appt.ID); err != nil {
		return err
	}
	return nil
}

func (s *Service) loadAssignableTherapist(ctx context.Context, tx Tx, id uuid.UUID, field string) (*therapist.Therapist, error) {
	t, err := tx.Therapists().GetTherapist(ctx, id)
	if err != nil {
		if errors.Is(err, therapist.ErrNotFound) {
			return nil, fieldError(field, "unknown therapist")
		}
		return nil, fmt.Errorf("load therapist: %w", err)
	}
	if !t.IsActive {
		return nil, fieldError(field, "therapist is not accepting appointments")
	}
	return t, nil
}

func (s *Service) loadView(ctx context.Context, tx Tx, appt *Appointment) (*View, error) {
	v := &View{Appointment: *appt}

	user, err := tx.Users().GetUserByID(ctx, appt.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	v.User = user

	if v.Detail, err = tx.Appointments().GetDetail(ctx, appt.ID); err != nil {
		return nil, fmt.Errorf("load detail: %w", err)
	}
	if v.PreferredPeriods, err = tx.Appointments().ListPreferredPeriods(ctx, appt.ID); err != nil {
		return nil, fmt.Errorf("load preferred periods: %w", err)
	}
	if appt.SlotID != nil {
		if v.Slot, err = tx.Slots().GetSlot(ctx, *appt.SlotID); err != nil {
			return nil, fmt.Errorf("load slot: %w", err)
		}
	}
	if appt.TherapistID != nil {
		if v.Therapist, err = tx.Therapists().GetTherapist(ctx, *appt.TherapistID); err != nil {
			return nil, fmt.Errorf("load therapist: %w", err)
		}
	}
	return v, nil
}

func (s *Service) loadViews(ctx context.Context, tx Tx, appts []Appointment) ([]View, error) {
	views := make([]View, 0, len(appts))
	for i := range appts {
		v, err := s.loadView(ctx, tx, &appts[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *Service) notify(ctx context.Context, kind NotificationKind, v *View, to Recipient, extra map[string]string) {
	if to.Email == "" {
		return
	}
	if !s.notifier.Notify(ctx, kind, v, to, extra) {
		s.logger.Warn("notification not delivered",
			zap.String("appointment_id", v.ID.String()),
			zap.String("kind", string(kind)),
			zap.String("role", string(to.Role)),
		)
	}
}

func (s *Service) logEvent(ctx context.Context, tx Tx, appointmentID uuid.UUID, eventType string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if err := tx.Appointments().InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("log %s: %w", eventType, err)
	}
	return nil
}

func requesterOf(v *View) Recipient {
	r := Recipient{Role: RoleRequester}
	if v.User != nil {
		r.Email = v.User.Email
	}
	if v.Detail != nil {
		r.Name = v.Detail.Name
	}
	return r
}

func therapistOf(v *View) (Recipient, bool) {
	if v.Therapist == nil || v.Therapist.AccountEmail == nil || *v.Therapist.AccountEmail == "" {
		return Recipient{}, false
	}
	return Recipient{Email: *v.Therapist.AccountEmail, Name: v.Therapist.Name, Role: RoleTherapist}, true
}

func reminderTarget(v *View) reminder.Target {
	t := reminder.Target{AppointmentID: v.ID}
	if v.Slot != nil {
		t.AppointmentTime = v.Slot.SlotTime
	}
	if v.User != nil {
		t.UserEmail = v.User.Email
	}
	if v.Therapist != nil {
		t.TherapistEmail = v.Therapist.AccountEmail
	}
	return t
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
