package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/events"
)

// claimResponse is the body returned by reserve and release.
type claimResponse struct {
	ID        string   `json:"id"`
	Capacity  int      `json:"capacity"`
	Claimants []string `json:"claimants"`
}

func toClaimResponse(g *domain.Gift) claimResponse {
	return claimResponse{ID: g.ID, Capacity: g.Capacity, Claimants: g.Claimants}
}

// HandleListGifts returns every gift with its current claimants.
func HandleListGifts(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gifts, err := s.GetLedger().ListGifts(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, gifts)
	}
}

// HandleReserveGift adds the caller to a gift's claimants.
func HandleReserveGift(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		gift, err := s.GetLedger().Reserve(r.Context(), chi.URLParam(r, "id"), id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, toClaimResponse(gift))
	}
}

// HandleReleaseGift removes the caller's own claim on a gift.
func HandleReleaseGift(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := mustIdentity(w, r)
		if !ok {
			return
		}

		gift, err := s.GetLedger().Release(r.Context(), chi.URLParam(r, "id"), id.GuestID)
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		writeJSON(w, http.StatusOK, toClaimResponse(gift))
	}
}

const sseHeartbeat = 25 * time.Second

// HandleGiftEvents streams gift changes as server-sent events.
func HandleGiftEvents(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := s.GetEvents().Subscribe(r.Context())
		if err != nil {
			if !errors.Is(err, events.ErrUnavailable) {
				s.GetLogger().Error("failed to subscribe to gift events", "error", err)
				err = events.ErrUnavailable
			}
			writeError(w, r, s.GetLogger(), err)
			return
		}
		defer sub.Close()

		rc := http.NewResponseController(w)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		if err := rc.Flush(); err != nil {
			s.GetLogger().Warn("streaming not supported", "error", err)
			return
		}

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-s.ShuttingDown():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					s.GetLogger().Error("failed to encode gift event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
