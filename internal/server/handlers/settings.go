package handlers

import (
	"net/http"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

func eventDefaults(s Server) domain.EventSettings {
	return domain.EventSettings{RequireApproval: s.GetConfig().RequireApproval}
}

// HandleGetEventSettings returns the event details.
func HandleGetEventSettings(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := s.GetDB().GetEventSettings(r.Context(), eventDefaults(s))
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

// HandleAdminUpdateEventSettings replaces the event details.
func HandleAdminUpdateEventSettings(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		var in domain.EventSettings
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		if err := in.Validate(); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		saved, err := s.GetDB().SaveEventSettings(r.Context(), in, admin.Email)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
