// Package ledger owns every change to the gift list and its claims.
//
// The store does the atomic work; the ledger applies defaults and deadlines
// and emits side effects once a change has committed.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/notify"
)

// store is the persistence the ledger needs. *database.DB satisfies it.
type store interface {
	ReserveGift(ctx context.Context, giftID, guestID string, maxPerGuest int) (*domain.Gift, error)
	ReleaseGift(ctx context.Context, giftID, guestID string) (*domain.Gift, error)
	ListGifts(ctx context.Context) ([]*domain.Gift, error)
	GetGift(ctx context.Context, id string) (*domain.Gift, error)
	CreateGift(ctx context.Context, in domain.GiftInput) (*domain.Gift, error)
	UpdateGift(ctx context.Context, id string, in domain.GiftInput) (*domain.Gift, error)
	DeleteGift(ctx context.Context, id string) error
	GetGuest(ctx context.Context, id string) (*domain.Guest, error)
}

type notifier interface {
	Enqueue(msg notify.Message) bool
}

type Options struct {
	DefaultCapacity int
	MaxPerGuest     int
	Timeout         time.Duration
}

type Ledger struct {
	log    *slog.Logger
	store  store
	notify notifier
	events events.Publisher
	opts   Options
	now    func() time.Time
}

func New(logger *slog.Logger, s store, n notifier, p events.Publisher, opts Options) *Ledger {
	if opts.DefaultCapacity < 1 {
		opts.DefaultCapacity = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if p == nil {
		p = events.Nop{}
	}
	return &Ledger{
		log:    logger.With("service", "ledger"),
		store:  s,
		notify: n,
		events: p,
		opts:   opts,
		now:    time.Now,
	}
}

// mutate runs fn under the ledger deadline. A store error that coincides
// with the deadline may hide a committed write, so it becomes
// ErrOutcomeUnknown and the caller is told to re-read.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(ctx.Err() != nil && !isDecision(err)) {
		l.log.Warn("ledger operation outcome unknown", "op", op, "error", err)
		return domain.ErrOutcomeUnknown
	}
	return err
}

// decisions are errors the store returns after rolling back, so the outcome
// is known even if the deadline passed meanwhile.
var decisions = []error{
	domain.ErrNotFound,
	domain.ErrValidation,
	domain.ErrGuestNotApproved,
	domain.ErrGiftAtCapacity,
	domain.ErrAlreadyReserved,
	domain.ErrNotReserved,
	domain.ErrGiftClaimed,
	domain.ErrCapacityBelowClaims,
	domain.ErrGuestLimitReached,
}

func isDecision(err error) bool {
	for _, d := range decisions {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// Reserve records guestID as a claimant of giftID.
func (l *Ledger) Reserve(ctx context.Context, giftID, guestID string) (*domain.Gift, error) {
	var gift *domain.Gift
	err := l.mutate(ctx, "reserve", func(ctx context.Context) error {
		var err error
		gift, err = l.store.ReserveGift(ctx, giftID, guestID, l.opts.MaxPerGuest)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("gift reserved", "gift_id", giftID, "guest_id", guestID, "claimants", len(gift.Claimants))
	l.afterClaimChange(ctx, events.GiftReserved, notify.KindGiftReserved, gift, guestID)
	return gift, nil
}

// Release removes guestID from the claimants of giftID. Only the caller's own
// claim is ever removed.
func (l *Ledger) Release(ctx context.Context, giftID, guestID string) (*domain.Gift, error) {
	var gift *domain.Gift
	err := l.mutate(ctx, "release", func(ctx context.Context) error {
		var err error
		gift, err = l.store.ReleaseGift(ctx, giftID, guestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("gift released", "gift_id", giftID, "guest_id", guestID)
	l.afterClaimChange(ctx, events.GiftReleased, notify.KindGiftReleased, gift, guestID)
	return gift, nil
}

// ReleaseOnBehalf lets an admin drop a guest's claim.
func (l *Ledger) ReleaseOnBehalf(ctx context.Context, admin, giftID, guestID string) (*domain.Gift, error) {
	gift, err := l.Release(ctx, giftID, guestID)
	if err != nil {
		return nil, err
	}
	l.log.Info("claim released by admin", "gift_id", giftID, "guest_id", guestID, "admin", admin)
	return gift, nil
}

// ListGifts returns a consistent snapshot of every gift and its claimants.
func (l *Ledger) ListGifts(ctx context.Context) ([]*domain.Gift, error) {
	gifts, err := l.store.ListGifts(ctx)
	if err != nil {
		return nil, err
	}
	if gifts == nil {
		gifts = []*domain.Gift{}
	}
	return gifts, nil
}

func (l *Ledger) GetGift(ctx context.Context, id string) (*domain.Gift, error) {
	return l.store.GetGift(ctx, id)
}

func (l *Ledger) CreateGift(ctx context.Context, in domain.GiftInput) (*domain.Gift, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	if in.Capacity == 0 {
		in.Capacity = l.opts.DefaultCapacity
	}

	var gift *domain.Gift
	err := l.mutate(ctx, "create_gift", func(ctx context.Context) error {
		var err error
		gift, err = l.store.CreateGift(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("gift created", "gift_id", gift.ID, "capacity", gift.Capacity)
	l.publish(ctx, events.GiftEvent{Type: events.GiftCreated, GiftID: gift.ID, Gift: gift})
	return gift, nil
}

// UpdateGift edits the descriptive fields of a gift. A zero capacity keeps
// the current one.
func (l *Ledger) UpdateGift(ctx context.Context, id string, in domain.GiftInput) (*domain.Gift, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	var gift *domain.Gift
	err := l.mutate(ctx, "update_gift", func(ctx context.Context) error {
		var err error
		gift, err = l.store.UpdateGift(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("gift updated", "gift_id", id)
	l.publish(ctx, events.GiftEvent{Type: events.GiftUpdated, GiftID: id, Gift: gift})
	return gift, nil
}

// DeleteGift removes a gift that nobody holds.
func (l *Ledger) DeleteGift(ctx context.Context, id string) error {
	err := l.mutate(ctx, "delete_gift", func(ctx context.Context) error {
		return l.store.DeleteGift(ctx, id)
	})
	if err != nil {
		return err
	}

	l.log.Info("gift deleted", "gift_id", id)
	l.publish(ctx, events.GiftEvent{Type: events.GiftDeleted, GiftID: id})
	return nil
}

func (l *Ledger) afterClaimChange(ctx context.Context, evType string, kind notify.Kind, gift *domain.Gift, guestID string) {
	l.publish(ctx, events.GiftEvent{Type: evType, GiftID: gift.ID, GuestID: guestID, Gift: gift})

	if l.notify == nil {
		return
	}
	msg := notify.Message{Kind: kind, GiftName: gift.Name, GiftLink: gift.Link, GuestName: guestID}
	// the change is committed; the request context may already be gone
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if guest, err := l.store.GetGuest(lookupCtx, guestID); err == nil {
		msg.GuestName = guest.DisplayName
		msg.GuestEmail = guest.Email
	} else {
		l.log.Warn("failed to load guest for notification", "guest_id", guestID, "error", err)
	}
	l.notify.Enqueue(msg)
}

func (l *Ledger) publish(ctx context.Context, ev events.GiftEvent) {
	ev.At = l.now().UTC()
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := l.events.Publish(pubCtx, ev); err != nil {
		l.log.Warn("failed to publish gift event", "type", ev.Type, "gift_id", ev.GiftID, "error", err)
	}
}
