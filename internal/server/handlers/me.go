package handlers

import (
	"net/http"
	"strings"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/utils"
)

type meResponse struct {
	*domain.Guest
	IsAdmin bool `json:"isAdmin"`
}

// HandleMe returns the caller's guest record, including approval state and
// the gifts they hold.
func HandleMe(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		guest, err := s.GetDB().GetGuest(r.Context(), id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, meResponse{Guest: guest, IsAdmin: id.IsAdmin})
	}
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// HandleUpdatePhone stores the caller's phone in E.164 form. An empty value
// clears it.
func HandleUpdatePhone(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		var req phoneRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		phone := strings.TrimSpace(req.Phone)
		if phone != "" {
			normalized, err := utils.NormalizePhoneNumber(phone, s.GetConfig().DefaultPhoneRegion)
			if err != nil {
				writeError(w, r, s.GetLogger(), domain.NewValidationError("phone", "invalid phone number"))
				return
			}
			phone = normalized
		}

		db := s.GetDB()
		if err := db.UpdateGuestPhone(r.Context(), id.GuestID, phone); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		guest, err := db.GetGuest(r.Context(), id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, meResponse{Guest: guest, IsAdmin: id.IsAdmin})
	}
}
