package therapist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/mindcare/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const therapistColumns = `id, name, title, license_number, bio, account_email,
	consultation_modes, pricing, specialties, is_active, created_at, updated_at`

func scanTherapist(row pgx.Row) (*Therapist, error) {
	var t Therapist
	var modes []string

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Title,
		&t.LicenseNumber,
		&t.Bio,
		&t.AccountEmail,
		&modes,
		&t.Pricing,
		&t.Specialties,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	for _, m := range modes {
		t.ConsultationModes = append(t.ConsultationModes, ConsultationMode(m))
	}
	if t.Pricing == nil {
		t.Pricing = Pricing{}
	}
	return &t, nil
}

func modeStrings(modes []ConsultationMode) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return out
}

func (r *PgRepository) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	row := r.q.QueryRow(ctx, `SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, id)
	return scanTherapist(row)
}

func (r *PgRepository) ListTherapists(ctx context.Context, activeOnly bool) ([]Therapist, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+therapistColumns+`
		FROM therapists
		WHERE is_active OR NOT $1
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Therapist
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateTherapist(ctx context.Context, t *Therapist) error {
	if err := t.Pricing.Validate(t.ConsultationModes); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Pricing == nil {
		t.Pricing = Pricing{}
	}
	if t.Specialties == nil {
		t.Specialties = []string{}
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO therapists (id, name, title, license_number, bio, account_email,
			consultation_modes, pricing, specialties, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`, t.ID, t.Name, t.Title, t.LicenseNumber, t.Bio, t.AccountEmail,
		modeStrings(t.ConsultationModes), t.Pricing, t.Specialties, t.IsActive,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert therapist: %w", err)
	}
	return nil
}

// UpdatePricing replaces the offered modes and their prices.
func (r *PgRepository) UpdatePricing(ctx context.Context, id uuid.UUID, modes []ConsultationMode, pricing Pricing) (*Therapist, error) {
	if err := pricing.Validate(modes); err != nil {
		return nil, err
	}
	row := r.q.QueryRow(ctx, `
		UPDATE therapists
		SET consultation_modes = $2,
		    pricing = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+therapistColumns, id, modeStrings(modes), pricing)
	return scanTherapist(row)
}

func (r *PgRepository) CreateRule(ctx context.Context, rule *AvailabilityRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO availability_rules (id, therapist_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT availability_rules_unique DO NOTHING
	`, rule.ID, rule.TherapistID, int16(rule.Weekday), toPgTime(rule.Start), toPgTime(rule.End))
	if err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

// ListRules returns rules for one therapist, or for every active therapist
// when therapistID is uuid.Nil.
func (r *PgRepository) ListRules(ctx context.Context, therapistID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT ar.id, ar.therapist_id, ar.day_of_week, ar.start_time, ar.end_time
		FROM availability_rules ar
		JOIN therapists t ON t.id = ar.therapist_id
		WHERE ($1::uuid = '00000000-0000-0000-0000-000000000000'::uuid AND t.is_active) OR ar.therapist_id = $1::uuid
		ORDER BY ar.therapist_id, ar.day_of_week, ar.start_time
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityRule
	for rows.Next() {
		var rule AvailabilityRule
		var day int16
		var start, end pgtype.Time
		if err := rows.Scan(&rule.ID, &rule.TherapistID, &day, &start, &end); err != nil {
			return nil, err
		}
		rule.Weekday = time.Weekday(day)
		rule.Start = fromPgTime(start)
		rule.End = fromPgTime(end)
		result = append(result, rule)
	}
	return result, rows.Err()
}

func toPgTime(c ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) ClockTime {
	return ClockTime(t.Microseconds / int64(time.Minute/time.Microsecond))
}
