package server

import (
	"errors"
	"net/http"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/server/handlers"
)

// loadIdentity attaches the session's guest, if any, to the request context.
// A missing or undecodable cookie leaves the request anonymous.
func (s *Server) loadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessionStore.Get(r, sessionName)
		if err == nil {
			guestID, _ := session.Values["guest_id"].(string)
			if guestID != "" {
				email, _ := session.Values["email"].(string)
				name, _ := session.Values["name"].(string)
				r = r.WithContext(handlers.WithIdentity(r.Context(), handlers.Identity{
					GuestID: guestID,
					Email:   email,
					Name:    name,
					IsAdmin: s.config.IsAdmin(email),
				}))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handlers.IdentityFrom(r.Context()); !ok {
			handlers.WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireApproved fails closed: if the approval status cannot be read the
// request is refused with 503 and never reaches the ledger.
func (s *Server) requireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := handlers.IdentityFrom(r.Context())
		if !ok {
			handlers.WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		status, err := s.db.GetApprovalStatus(r.Context(), id.GuestID)
		switch {
		case errors.Is(err, domain.ErrGuestNotFound):
			handlers.WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
			return
		case err != nil:
			s.log.Error("approval lookup failed", "guest_id", id.GuestID, "error", err)
			handlers.WriteErrorCode(w, r, http.StatusServiceUnavailable, "unavailable")
			return
		case status != domain.StatusApproved:
			handlers.WriteNotApproved(w, r, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := handlers.IdentityFrom(r.Context())
		if !ok {
			handlers.WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.IsAdmin {
			handlers.WriteErrorCode(w, r, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
