package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/therapist"
)

const defaultSlotWindow = 14 * 24 * time.Hour

func therapistID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_therapist_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func listTherapistsHandler(dir *appointment.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := dir.ListTherapists(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		out := make([]TherapistResponse, 0, len(list))
		for i := range list {
			out = append(out, toTherapistResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTherapistHandler(dir *appointment.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := therapistID(w, r)
		if !ok {
			return
		}
		t, err := dir.GetTherapist(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toTherapistResponse(t))
	}
}

// freeSlotsHandler takes optional RFC 3339 "from" and "to" query values and
// defaults to the next two weeks.
func freeSlotsHandler(dir *appointment.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := therapistID(w, r)
		if !ok {
			return
		}

		from := time.Now().UTC()
		if raw := r.URL.Query().Get("from"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC 3339 timestamp")
				return
			}
			from = t
		}
		to := from.Add(defaultSlotWindow)
		if raw := r.URL.Query().Get("to"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC 3339 timestamp")
				return
			}
			to = t
		}

		slots, err := dir.FreeSlots(r.Context(), id, from, to)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		out := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updatePricingHandler(dir *appointment.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := therapistID(w, r)
		if !ok {
			return
		}
		var req UpdatePricingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		modes := make([]therapist.ConsultationMode, 0, len(req.ConsultationModes))
		for _, m := range req.ConsultationModes {
			modes = append(modes, therapist.ConsultationMode(m))
		}
		pricing := make(therapist.Pricing, len(req.Pricing))
		for m, amount := range req.Pricing {
			pricing[therapist.ConsultationMode(m)] = amount
		}

		t, err := dir.UpdatePricing(r.Context(), id, modes, pricing)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toTherapistResponse(t))
	}
}
