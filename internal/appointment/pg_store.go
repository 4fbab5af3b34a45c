package appointment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/mindcare/internal/db"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/reminder"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

// PgStore runs every unit of work in a SERIALIZABLE transaction, retried on
// serialization failures.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.InSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newPgTx(tx))
	})
}

type pgTx struct {
	appointments *PgRepository
	slots        *slot.PgRepository
	reminders    *reminder.PgRepository
	users        *identity.PgRepository
	therapists   *therapist.PgRepository
}

func newPgTx(q db.Querier) *pgTx {
	return &pgTx{
		appointments: NewPgRepository(q),
		slots:        slot.NewPgRepository(q),
		reminders:    reminder.NewPgRepository(q),
		users:        identity.NewPgRepository(q),
		therapists:   therapist.NewPgRepository(q),
	}
}

func (t *pgTx) Appointments() Repository { return t.appointments }
func (t *pgTx) Slots() slot.Repository { return t.slots }
func (t *pgTx) Reminders() reminder.Repository { return t.reminders }
func (t *pgTx) Users() UserRepository { return t.users }
func (t *pgTx) Therapists() TherapistRepository { return t.therapists }
