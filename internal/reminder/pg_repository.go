package reminder

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

const emailColumns = `id, appointment_id, email_type, recipient_email, scheduled_time, status,
	sent_at, error_message, retry_count, created_at, updated_at`

func scanEmail(row pgx.Row) (*ScheduledEmail, error) {
	var e ScheduledEmail

	err := row.Scan(
		&e.ID,
		&e.AppointmentID,
		&e.EmailType,
		&e.RecipientEmail,
		&e.ScheduledTime,
		&e.Status,
		&e.SentAt,
		&e.ErrorMessage,
		&e.RetryCount,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func collect(rows pgx.Rows) ([]ScheduledEmail, error) {
	defer rows.Close()

	var result []ScheduledEmail
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) LatestFor(ctx context.Context, appointmentID uuid.UUID, t EmailType) (*ScheduledEmail, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+emailColumns+`
		FROM scheduled_emails
		WHERE appointment_id = $1 AND email_type = $2
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1
	`, appointmentID, t)
	return scanEmail(row)
}

func (r *PgRepository) Insert(ctx context.Context, e *ScheduledEmail) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO scheduled_emails (id, appointment_id, email_type, recipient_email, scheduled_time,
			status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, e.ID, e.AppointmentID, e.EmailType, e.RecipientEmail, e.ScheduledTime, e.Status, e.RetryCount,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert scheduled email: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdatePending(ctx context.Context, id uuid.UUID, recipient string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE scheduled_emails
		SET recipient_email = $2,
		    scheduled_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
	`, id, recipient, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) CancelPending(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'cancelled',
		    updated_at = now()
		WHERE appointment_id = $1
		  AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]ScheduledEmail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+emailColumns+`
		FROM scheduled_emails
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) DeleteForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM scheduled_emails WHERE appointment_id = $1`, appointmentID)
	return err
}

func (r *PgRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledEmail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+emailColumns+`
		FROM scheduled_emails
		WHERE status = 'pending'
		  AND scheduled_time <= $1
		ORDER BY scheduled_time
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'sent',
		    sent_at = $2,
		    error_message = '',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE scheduled_emails
		SET status = 'failed',
		    error_message = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
	`, id, msg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) RecordFailure(ctx context.Context, id uuid.UUID, msg string, maxRetries int) (*ScheduledEmail, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE scheduled_emails
		SET retry_count = retry_count + 1,
		    error_message = $2,
		    status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+emailColumns, id, msg, maxRetries)
	return scanEmail(row)
}

func (r *PgRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM scheduled_emails
		WHERE created_at < $1
		  AND status IN ('sent', 'cancelled', 'failed')
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
