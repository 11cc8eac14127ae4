// Package events fans gift changes out to live viewers.
//
// Delivery is at most once: a viewer that is not subscribed when a change is
// published never sees it and must re-read the gift list.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

const (
	GiftCreated  = "gift.created"
	GiftUpdated  = "gift.updated"
	GiftDeleted  = "gift.deleted"
	GiftReserved = "gift.reserved"
	GiftReleased = "gift.released"
)

// ErrUnavailable is returned by Subscribe when no broker is configured.
var ErrUnavailable = errors.New("change feed unavailable")

// GiftEvent describes one change to the gift list. Gift is the state right
// after the change and is nil for deletions.
type GiftEvent struct {
	Type    string       `json:"type"`
	GiftID  string       `json:"giftId"`
	GuestID string       `json:"guestId,omitempty"`
	Gift    *domain.Gift `json:"gift,omitempty"`
	At      time.Time    `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev GiftEvent) error
}

type Subscriber interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription delivers events until Close is called or its context ends.
type Subscription struct {
	events <-chan GiftEvent
	cancel context.CancelFunc
}

func (s *Subscription) Events() <-chan GiftEvent {
	return s.events
}

func (s *Subscription) Close() error {
	s.cancel()
	return nil
}

// Nop is used when REDIS_URL is empty. Publishing succeeds silently.
type Nop struct{}

func (Nop) Publish(context.Context, GiftEvent) error { return nil }

func (Nop) Subscribe(context.Context) (*Subscription, error) { return nil, ErrUnavailable }
