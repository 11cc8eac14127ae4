package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/notify"
)

const emailLogLimit = 10

// HandleAdminCreateGift adds a gift to the list.
func HandleAdminCreateGift(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.GiftInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		gift, err := s.GetLedger().CreateGift(r.Context(), in)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusCreated, gift)
	}
}

// HandleAdminUpdateGift edits a gift's name, link, image or capacity.
// Claimants cannot be changed here.
func HandleAdminUpdateGift(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.GiftInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		gift, err := s.GetLedger().UpdateGift(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, gift)
	}
}

// HandleAdminDeleteGift removes a gift nobody holds.
func HandleAdminDeleteGift(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.GetLedger().DeleteGift(r.Context(), id); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

// HandleAdminReleaseClaim drops a guest's claim on a gift.
func HandleAdminReleaseClaim(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		gift, err := s.GetLedger().ReleaseOnBehalf(r.Context(), admin.Email, chi.URLParam(r, "id"), chi.URLParam(r, "guestId"))
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, toClaimResponse(gift))
	}
}

// HandleAdminListGuests lists every guest with approval state and gifts held.
func HandleAdminListGuests(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guests, err := s.GetDB().ListGuests(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		if guests == nil {
			guests = []*domain.Guest{}
		}
		writeJSON(w, http.StatusOK, guests)
	}
}

// HandleAdminSetApproval returns a handler that moves a guest to status.
func HandleAdminSetApproval(s Server, status domain.ApprovalStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		guest, err := s.GetDB().SetApprovalStatus(r.Context(), chi.URLParam(r, "id"), status, admin.Email)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		s.GetLogger().Info("guest approval changed", "guest_id", guest.ID, "status", status, "admin", admin.Email)
		writeJSON(w, http.StatusOK, guest)
	}
}

type inviteResponse struct {
	*domain.Invite
	Link string `json:"link"`
}

func inviteLink(s Server, token string) string {
	return s.GetConfig().BaseURL + "/invite?t=" + url.QueryEscape(token)
}

// HandleAdminCreateInvite generates a new invite token and notifies the hosts.
func HandleAdminCreateInvite(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := s.GetDB().CreateInvite(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		link := inviteLink(s, inv.Token)
		s.Notify(notify.Message{Kind: notify.KindInvite, Token: inv.Token, InviteLink: link})
		writeJSON(w, http.StatusCreated, inviteResponse{Invite: inv, Link: link})
	}
}

// HandleAdminListInvites lists invites, newest first.
func HandleAdminListInvites(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invites, err := s.GetDB().ListInvites(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		out := make([]inviteResponse, 0, len(invites))
		for _, inv := range invites {
			out = append(out, inviteResponse{Invite: inv, Link: inviteLink(s, inv.Token)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleAdminDeleteInvite withdraws an invite nobody has used yet.
func HandleAdminDeleteInvite(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if err := s.GetDB().DeleteInvite(r.Context(), token); err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// HandleAdminEmailLogs returns the most recent notification attempts.
func HandleAdminEmailLogs(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.GetDB().ListEmailLogs(r.Context(), emailLogLimit)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}
