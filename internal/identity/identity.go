// Package identity implements the anonymous "email + identity secret" scheme
// used by requesters who book without an account. The secret is a national ID
// number; only its bcrypt hash is stored.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch never says whether the email or the secret was wrong.
	ErrMismatch = errors.New("identity mismatch")
	ErrNotFound = errors.New("user not found")
)

type User struct {
	ID           uuid.UUID
	Email        string
	IDNumberHash string
	CreatedAt    time.Time
}

type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// CreateUserIfAbsent inserts u unless the email is taken, and returns the
	// stored row either way.
	CreateUserIfAbsent(ctx context.Context, u *User) (stored *User, created bool, err error)
}

type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using the given bcrypt cost. Pass 0 for
// bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-identity"), cost)
	if err != nil {
		panic("identity: bcrypt cost out of range: " + err.Error())
	}
	return Hasher{cost: cost, dummy: dummy}
}

func (h Hasher) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(NormalizeSecret(secret)), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash identity secret: %w", err)
	}
	return string(out), nil
}

func (h Hasher) Matches(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(NormalizeSecret(secret))) == nil
}

// burn spends the same work as a real comparison so unknown emails are not
// distinguishable by response time.
func (h Hasher) burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(NormalizeSecret(secret)))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeSecret upper-cases the ID number so "a123456789" and "A123456789"
// hash the same.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.TrimSpace(secret))
}

// ResolveOrCreate returns the user owning email, provisioning one when the
// email is new. An existing user must present the secret it was created with.
func ResolveOrCreate(ctx context.Context, repo Repository, h Hasher, email, secret string) (*User, error) {
	email = NormalizeEmail(email)

	existing, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !h.Matches(existing.IDNumberHash, secret) {
			return nil, ErrMismatch
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load user: %w", err)
	}

	hash, err := h.Hash(secret)
	if err != nil {
		return nil, err
	}

	stored, created, err := repo.CreateUserIfAbsent(ctx, &User{
		ID:           uuid.New(),
		Email:        email,
		IDNumberHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// lost a race with a concurrent first booking for the same email
	if !created && !h.Matches(stored.IDNumberHash, secret) {
		return nil, ErrMismatch
	}
	return stored, nil
}

// Verify re-proves an existing identity. Unknown emails fail with ErrMismatch.
func Verify(ctx context.Context, repo Repository, h Hasher, email, secret string) (*User, error) {
	u, err := repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.burn(secret)
			return nil, ErrMismatch
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !h.Matches(u.IDNumberHash, secret) {
		return nil, ErrMismatch
	}
	return u, nil
}
