package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/notify"
)

type inviteStatus struct {
	Token     string `json:"token"`
	Used      bool   `json:"used"`
	Confirmed bool   `json:"confirmed"`
}

// HandleVerifyInvite tells an anonymous visitor whether a token is usable.
// Nothing about the guest holding it is revealed.
func HandleVerifyInvite(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if !database.ValidToken(token) {
			writeError(w, r, s.GetLogger(), domain.ErrInviteNotFound)
			return
		}

		inv, err := s.GetDB().GetInvite(r.Context(), token)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, inviteStatus{Token: inv.Token, Used: inv.Used, Confirmed: inv.Confirmed})
	}
}

type redeemResponse struct {
	Invite         *domain.Invite        `json:"invite"`
	ApprovalStatus domain.ApprovalStatus `json:"approvalStatus"`
}

// HandleUseInvite binds an invite to the caller and approves them.
func HandleUseInvite(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}
		token := chi.URLParam(r, "token")
		if !database.ValidToken(token) {
			writeError(w, r, s.GetLogger(), domain.ErrInviteNotFound)
			return
		}

		db := s.GetDB()
		guest, err := db.GetGuest(r.Context(), id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		inv, err := db.RedeemInvite(r.Context(), token, guest)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		status, err := db.GetApprovalStatus(r.Context(), guest.ID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		s.GetLogger().Info("invite redeemed", "token", token, "guest_id", guest.ID, "status", status)
		writeJSON(w, http.StatusOK, redeemResponse{Invite: inv, ApprovalStatus: status})
	}
}

// HandleConfirmPresence records that the invite holder will attend and tells
// the hosts the first time it happens.
func HandleConfirmPresence(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}
		token := chi.URLParam(r, "token")
		db := s.GetDB()

		inv, first, err := db.ConfirmPresence(r.Context(), token, id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}

		if first {
			msg := notify.Message{Kind: notify.KindConfirm, GuestName: inv.Name, GuestEmail: inv.Email}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if settings, err := db.GetEventSettings(ctx, eventDefaults(s)); err == nil {
				msg.Address = settings.Address
			}
			s.Notify(msg)
		}
		writeJSON(w, http.StatusOK, inv)
	}
}
