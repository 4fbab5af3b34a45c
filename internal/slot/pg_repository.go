package slot

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

func scanSlot(row pgx.Row) (*AvailableSlot, error) {
	var s AvailableSlot

	err := row.Scan(
		&s.ID,
		&s.TherapistID,
		&s.SlotTime,
		&s.IsBooked,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.SlotTime = s.SlotTime.UTC()
	return &s, nil
}

func (r *PgRepository) GetOrCreate(ctx context.Context, therapistID uuid.UUID, at time.Time, booked bool) (*AvailableSlot, bool, error) {
	at = Normalize(at)

	row := r.q.QueryRow(ctx, `
		INSERT INTO available_slots (id, therapist_id, slot_time, is_booked, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT ON CONSTRAINT available_slots_therapist_time_key DO NOTHING
		RETURNING id, therapist_id, slot_time, is_booked, created_at
	`, uuid.New(), therapistID, at, booked)

	s, err := scanSlot(row)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("insert slot: %w", err)
	}

	row = r.q.QueryRow(ctx, `
		SELECT id, therapist_id, slot_time, is_booked, created_at
		FROM available_slots
		WHERE therapist_id = $1 AND slot_time = $2
		FOR UPDATE
	`, therapistID, at)

	s, err = scanSlot(row)
	if err != nil {
		return nil, false, fmt.Errorf("load existing slot: %w", err)
	}
	return s, false, nil
}

func (r *PgRepository) GetSlot(ctx context.Context, id uuid.UUID) (*AvailableSlot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, therapist_id, slot_time, is_booked, created_at
		FROM available_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) SetBooked(ctx context.Context, id uuid.UUID, booked bool) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE available_slots
		SET is_booked = $2
		WHERE id = $1
	`, id, booked)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) ListFree(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]AvailableSlot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, therapist_id, slot_time, is_booked, created_at
		FROM available_slots
		WHERE therapist_id = $1
		  AND NOT is_booked
		  AND slot_time >= $2
		  AND slot_time < $3
		ORDER BY slot_time
	`, therapistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailableSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateFree(ctx context.Context, therapistID uuid.UUID, times []time.Time) (int, error) {
	created := 0
	for _, t := range times {
		tag, err := r.q.Exec(ctx, `
			INSERT INTO available_slots (id, therapist_id, slot_time, is_booked, created_at)
			VALUES ($1, $2, $3, false, now())
			ON CONFLICT ON CONSTRAINT available_slots_therapist_time_key DO NOTHING
		`, uuid.New(), therapistID, Normalize(t))
		if err != nil {
			return created, fmt.Errorf("insert free slot: %w", err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}
