package authz

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	roleKey      contextKey = "authz_role"
	therapistKey contextKey = "authz_therapist"
)

// Authenticator resolves the caller's role from "Authorization: Bearer
// <token>". The configured admin token grants admin; a therapist token
// grants the therapist role bound to that therapist. With no tokens
// configured every caller is anonymous.
type Authenticator struct {
	adminToken      []byte
	therapistTokens map[uuid.UUID][]byte
}

func NewAuthenticator(adminToken string) *Authenticator {
	return &Authenticator{adminToken: []byte(adminToken)}
}

// WithTherapistTokens registers one bearer token per therapist.
func (a *Authenticator) WithTherapistTokens(tokens map[uuid.UUID]string) *Authenticator {
	a.therapistTokens = make(map[uuid.UUID][]byte, len(tokens))
	for id, token := range tokens {
		if token != "" {
			a.therapistTokens[id] = []byte(token)
		}
	}
	return a
}

func (a *Authenticator) RoleOf(r *http.Request) Role {
	role, _ := a.resolve(r)
	return role
}

func (a *Authenticator) resolve(r *http.Request) (Role, uuid.UUID) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return RoleAnonymous, uuid.Nil
	}
	presented := []byte(strings.TrimSpace(token))
	if len(presented) == 0 {
		return RoleAnonymous, uuid.Nil
	}

	if len(a.adminToken) > 0 && subtle.ConstantTimeCompare(presented, a.adminToken) == 1 {
		return RoleAdmin, uuid.Nil
	}
	for id, want := range a.therapistTokens {
		if subtle.ConstantTimeCompare(presented, want) == 1 {
			return RoleTherapist, id
		}
	}
	return RoleAnonymous, uuid.Nil
}

// Middleware stores the caller's role, and the therapist id for therapist
// callers, in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, therapistID := a.resolve(r)
		ctx := WithRole(r.Context(), role)
		if role == RoleTherapist {
			ctx = WithTherapist(ctx, therapistID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFrom returns the role stored by Middleware, anonymous if none.
func RoleFrom(ctx context.Context) Role {
	if role, ok := ctx.Value(roleKey).(Role); ok {
		return role
	}
	return RoleAnonymous
}

func WithTherapist(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, therapistKey, id)
}

// TherapistFrom returns the therapist a therapist-role caller acts as.
func TherapistFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(therapistKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Require lets the request through only if the policy allows action for
// the caller's role. Denied requests are handed to deny.
func Require(p Policy, action Action, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.Allowed(action, RoleFrom(r.Context())) {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
