package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/identity"
	"github.com/hackgods/mindcare/internal/slot"
	"github.com/hackgods/mindcare/internal/therapist"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: msg})
}

func forbidden(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusForbidden, "forbidden", "not allowed for this caller")
}

// handleServiceError maps lifecycle errors onto HTTP responses. Anything
// unrecognized is logged and reported as a 500 without internals.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		verr *appointment.ValidationError
		serr *appointment.StateError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Fields: verr.Fields})
	case errors.Is(err, identity.ErrMismatch):
		writeError(w, http.StatusUnauthorized, "identity_mismatch", "identity mismatch")
	case errors.As(err, &serr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:         "invalid_state",
			Details:       serr.Error(),
			CurrentStatus: string(serr.Current),
		})
	case errors.Is(err, appointment.ErrConflict):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, therapist.ErrNotFound):
		writeError(w, http.StatusNotFound, "therapist_not_found", err.Error())
	case errors.Is(err, slot.ErrNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
