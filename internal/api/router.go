package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/authz"
)

type RouterConfig struct {
	Service   *appointment.Service
	Directory *appointment.Directory
	Auth      *authz.Authenticator
	Policy    authz.Policy // DefaultPolicy when nil
	Health    *HealthHandler
	Logger    *zap.Logger
	Location  *time.Location // zone for naive confirm-time values
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Policy == nil {
		cfg.Policy = authz.DefaultPolicy
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Auth == nil {
		cfg.Auth = authz.NewAuthenticator("")
	}
	svc, dir, log := cfg.Service, cfg.Directory, cfg.Logger
	can := func(a authz.Action) func(http.Handler) http.Handler {
		return authz.Require(cfg.Policy, a, forbidden)
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(cfg.Auth.Middleware)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.With(can(authz.ActionCreateAppointment)).Post("/appointments", createAppointmentHandler(svc, log))
	r.With(can(authz.ActionQueryAppointments)).Post("/appointments/query", queryAppointmentsHandler(svc, log))
	r.With(can(authz.ActionCancelOwn)).Post("/appointments/{id}/cancel", cancelOwnHandler(svc, log))
	r.With(can(authz.ActionViewAppointment)).Get("/appointments/{id}", getAppointmentHandler(svc, log))

	r.With(can(authz.ActionListTherapists)).Get("/therapists", listTherapistsHandler(dir, log))
	r.With(can(authz.ActionListTherapists)).Get("/therapists/{id}", getTherapistHandler(dir, log))
	r.With(can(authz.ActionViewFreeSlots)).Get("/therapists/{id}/slots", freeSlotsHandler(dir, log))
	r.With(can(authz.ActionListOwnAppointments)).Get("/therapist/appointments", therapistAppointmentsHandler(svc, log))

	r.Route("/admin", func(r chi.Router) {
		r.With(can(authz.ActionListPending)).Get("/appointments/pending", listPendingHandler(svc, log))
		r.With(can(authz.ActionAssignTherapist)).Post("/appointments/{id}/assign-therapist", assignTherapistHandler(svc, log))
		r.With(can(authz.ActionConfirmTime)).Post("/appointments/{id}/confirm-time", confirmTimeHandler(svc, cfg.Location, log))
		r.With(can(authz.ActionUpdateStatus)).Patch("/appointments/{id}/status", updateStatusHandler(svc, log))
		r.With(can(authz.ActionUpdateAdminFields)).Patch("/appointments/{id}", updateAdminFieldsHandler(svc, log))
		r.With(can(authz.ActionDeleteAppointment)).Delete("/appointments/{id}", deleteAppointmentHandler(svc, log))
		r.With(can(authz.ActionUpdateTherapistFees)).Put("/therapists/{id}/pricing", updatePricingHandler(dir, log))
	})

	return r
}
