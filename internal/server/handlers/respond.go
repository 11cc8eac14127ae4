package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/i18n"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Status  string              `json:"status,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorCode writes a localised error body for code.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: i18n.T(i18n.GetLanguageFromRequest(r), code),
	})
}

// WriteNotApproved is the holding-state response for pending and rejected
// guests.
func WriteNotApproved(w http.ResponseWriter, r *http.Request, status domain.ApprovalStatus) {
	writeJSON(w, http.StatusForbidden, ErrorResponse{
		Error:   "guest_not_approved",
		Message: i18n.T(i18n.GetLanguageFromRequest(r), "guest_not_approved"),
		Status:  string(status),
	})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: specific not-found errors come before ErrNotFound.
var errorMappings = []errorMapping{
	{domain.ErrGiftNotFound, http.StatusNotFound, "gift_not_found"},
	{domain.ErrGuestNotFound, http.StatusNotFound, "guest_not_found"},
	{domain.ErrInviteNotFound, http.StatusNotFound, "invite_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrGuestNotApproved, http.StatusForbidden, "guest_not_approved"},
	{domain.ErrGiftAtCapacity, http.StatusConflict, "gift_at_capacity"},
	{domain.ErrAlreadyReserved, http.StatusConflict, "already_reserved"},
	{domain.ErrNotReserved, http.StatusConflict, "not_reserved"},
	{domain.ErrGiftClaimed, http.StatusConflict, "gift_claimed"},
	{domain.ErrCapacityBelowClaims, http.StatusConflict, "capacity_below_claims"},
	{domain.ErrGuestLimitReached, http.StatusConflict, "guest_limit_reached"},
	{domain.ErrInviteUsed, http.StatusConflict, "invite_used"},
	{domain.ErrInviteNotRedeemed, http.StatusConflict, "invite_not_redeemed"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrOutcomeUnknown, http.StatusGatewayTimeout, "outcome_unknown"},
	{events.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// writeError maps err to a status code and error code. Unexpected errors
// are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: i18n.T(i18n.GetLanguageFromRequest(r), "validation_failed"),
			Fields:  verr.Errors,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			WriteErrorCode(w, r, m.status, m.code)
			return
		}
	}

	log.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	WriteErrorCode(w, r, http.StatusInternalServerError, "internal")
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

func mustIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
