package slot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	slots   map[uuid.UUID]*AvailableSlot
	updates int
}

func (f *fakeRepo) GetOrCreate(context.Context, uuid.UUID, time.Time, bool) (*AvailableSlot, bool, error) {
	panic("not used")
}

func (f *fakeRepo) GetSlot(_ context.Context, id uuid.UUID) (*AvailableSlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) SetBooked(_ context.Context, id uuid.UUID, booked bool) error {
	f.updates++
	f.slots[id].IsBooked = booked
	return nil
}

func (f *fakeRepo) ListFree(context.Context, uuid.UUID, time.Time, time.Time) ([]AvailableSlot, error) {
	panic("not used")
}

func (f *fakeRepo) CreateFree(context.Context, uuid.UUID, []time.Time) (int, error) {
	panic("not used")
}

func TestRelease_IsIdempotent(t *testing.T) {
	id := uuid.New()
	repo := &fakeRepo{slots: map[uuid.UUID]*AvailableSlot{id: {ID: id, IsBooked: true}}}

	require.NoError(t, Release(context.Background(), repo, id))
	assert.False(t, repo.slots[id].IsBooked)

	require.NoError(t, Release(context.Background(), repo, id))
	assert.Equal(t, 1, repo.updates, "second release must not write")
}

func TestRelease_UnknownSlot(t *testing.T) {
	repo := &fakeRepo{slots: map[uuid.UUID]*AvailableSlot{}}
	err := Release(context.Background(), repo, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	in := time.Date(2025, 8, 2, 9, 30, 15, 999_000_000, loc)

	got := Normalize(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2025, 8, 2, 1, 30, 15, 0, time.UTC), got)
}
