package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/mindcare/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

// Helpers

const appointmentColumns = `id, user_id, therapist_id, slot_id, consultation_type, price, status,
	consultation_room, admin_notes, created_at, updated_at, confirmed_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var room *string

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.TherapistID,
		&a.SlotID,
		&a.ConsultationType,
		&a.Price,
		&a.Status,
		&room,
		&a.AdminNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if room != nil {
		r := Room(*room)
		a.Room = &r
	}
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func roomArg(r *Room) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// mapConstraint turns the one-slot-one-appointment backstop into ErrConflict.
func mapConstraint(err error) error {
	if db.IsUniqueViolation(err, "appointments_slot_id_key") {
		return ErrConflict
	}
	return err
}

// Interface methods

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, therapist_id, slot_id, consultation_type, price, status,
			consultation_room, admin_notes, created_at, updated_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now(), $10)
		RETURNING created_at, updated_at
	`, a.ID, a.UserID, a.TherapistID, a.SlotID, a.ConsultationType, a.Price, a.Status,
		roomArg(a.Room), a.AdminNotes, a.ConfirmedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", mapConstraint(err))
	}
	return nil
}

func (r *PgRepository) InsertDetail(ctx context.Context, d *Detail) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO appointment_details (appointment_id, name, phone, main_concerns, previous_therapy,
			urgency, special_needs, specialty_requested, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`, d.AppointmentID, d.Name, d.Phone, d.MainConcerns, d.PreviousTherapy,
		d.Urgency, d.SpecialNeeds, d.SpecialtyRequested,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment detail: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertPreferredPeriods(ctx context.Context, appointmentID uuid.UUID, periods []PreferredPeriod) error {
	for i := range periods {
		p := &periods[i]
		p.AppointmentID = appointmentID
		err := r.q.QueryRow(ctx, `
			INSERT INTO preferred_periods (appointment_id, date, period, created_at)
			VALUES ($1, $2, $3, now())
			RETURNING id, created_at
		`, appointmentID, p.Date, p.Period).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert preferred period: %w", err)
		}
	}
	return nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentBySlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE slot_id = $1`, slotID)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, appointmentID uuid.UUID) (*Detail, error) {
	var d Detail
	err := r.q.QueryRow(ctx, `
		SELECT appointment_id, name, phone, main_concerns, previous_therapy, urgency,
		       special_needs, specialty_requested, created_at
		FROM appointment_details
		WHERE appointment_id = $1
	`, appointmentID).Scan(
		&d.AppointmentID,
		&d.Name,
		&d.Phone,
		&d.MainConcerns,
		&d.PreviousTherapy,
		&d.Urgency,
		&d.SpecialNeeds,
		&d.SpecialtyRequested,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) ListPreferredPeriods(ctx context.Context, appointmentID uuid.UUID) ([]PreferredPeriod, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, appointment_id, date, period, created_at
		FROM preferred_periods
		WHERE appointment_id = $1
		ORDER BY date, CASE period WHEN 'morning' THEN 0 WHEN 'afternoon' THEN 1 ELSE 2 END
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PreferredPeriod
	for rows.Next() {
		var p PreferredPeriod
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Date, &p.Period, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Date = time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), 0, 0, 0, 0, time.UTC)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE therapist_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, therapistID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment, from Status) error {
	err := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET therapist_id = $3,
		    slot_id = $4,
		    price = $5,
		    status = $6,
		    consultation_room = $7,
		    admin_notes = $8,
		    confirmed_at = $9,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING updated_at
	`, a.ID, from, a.TherapistID, a.SlotID, a.Price, a.Status, roomArg(a.Room), a.AdminNotes, a.ConfirmedAt,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("update appointment: %w", mapConstraint(err))
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM preferred_periods WHERE appointment_id = $1`, id); err != nil {
		return fmt.Errorf("delete preferred periods: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM appointment_details WHERE appointment_id = $1`, id); err != nil {
		return fmt.Errorf("delete appointment detail: %w", err)
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
