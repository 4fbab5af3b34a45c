package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	cases := []struct {
		action Action
		role   Role
		want   bool
	}{
		{ActionCreateAppointment, RoleAnonymous, true},
		{ActionQueryAppointments, RoleAnonymous, true},
		{ActionCancelOwn, RoleAnonymous, true},
		{ActionConfirmTime, RoleAnonymous, false},
		{ActionConfirmTime, RoleAdmin, true},
		{ActionUpdateStatus, RoleAnonymous, false},
		{ActionDeleteAppointment, RoleAdmin, true},
		{ActionUpdateTherapistFees, RoleAnonymous, false},
		{ActionListOwnAppointments, RoleTherapist, true},
		{ActionListOwnAppointments, RoleAdmin, false},
		{ActionListOwnAppointments, RoleAnonymous, false},
		{ActionListTherapists, RoleTherapist, true},
		{ActionConfirmTime, RoleTherapist, false},
		{ActionViewAppointment, RoleTherapist, false},
		{Action("unknown"), RoleAdmin, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.action)+"/"+string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.want, DefaultPolicy.Allowed(tc.action, tc.role))
		})
	}
}

func TestAuthenticator_RoleOf(t *testing.T) {
	auth := NewAuthenticator("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, RoleAnonymous, auth.RoleOf(req))

	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, RoleAdmin, auth.RoleOf(req))

	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, RoleAnonymous, auth.RoleOf(req))

	req.Header.Set("Authorization", "s3cret")
	assert.Equal(t, RoleAnonymous, auth.RoleOf(req))

	// no configured token means no admin, even for an empty bearer
	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, RoleAnonymous, NewAuthenticator("").RoleOf(req))
}

func TestRequire(t *testing.T) {
	auth := NewAuthenticator("s3cret")
	deny := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) }
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	h := auth.Middleware(Require(DefaultPolicy, ActionConfirmTime, deny)(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthenticator_TherapistTokens(t *testing.T) {
	xu, lin := uuid.New(), uuid.New()
	auth := NewAuthenticator("s3cret").WithTherapistTokens(map[uuid.UUID]string{
		xu:  "xu-token",
		lin: "lin-token",
	})

	var (
		gotRole Role
		gotID   uuid.UUID
		gotOK   bool
	)
	h := auth.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotRole = RoleFrom(r.Context())
		gotID, gotOK = TherapistFrom(r.Context())
	}))

	serve := func(header string) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	serve("Bearer lin-token")
	assert.Equal(t, RoleTherapist, gotRole)
	require.True(t, gotOK)
	assert.Equal(t, lin, gotID)

	serve("Bearer s3cret")
	assert.Equal(t, RoleAdmin, gotRole)
	assert.False(t, gotOK, "admins do not act as a therapist")

	serve("Bearer someone-else")
	assert.Equal(t, RoleAnonymous, gotRole)
	assert.False(t, gotOK)

	serve("")
	assert.Equal(t, RoleAnonymous, gotRole)
}
