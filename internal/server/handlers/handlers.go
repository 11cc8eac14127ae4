package handlers

import (
	"context"
	"log/slog"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/ledger"
	"github.com/AlexTLDR/giftregistry/internal/notify"
)

// Server interface defines the methods needed by handlers
type Server interface {
	GetDB() *database.DB
	GetConfig() *config.Config
	GetLedger() *ledger.Ledger
	GetEvents() events.Subscriber
	GetLogger() *slog.Logger
	Notify(msg notify.Message)
	ShuttingDown() <-chan struct{}
}

// Identity is the verified caller, set by the session middleware.
type Identity struct {
	GuestID string
	Email   string
	Name    string
	IsAdmin bool
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller, if the request carried a valid session.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.GuestID != ""
}
