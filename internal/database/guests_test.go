package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

func TestUpsertGuest_KeepsStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := seedGuest(t, db, "alice", domain.StatusPending)
	assert.Equal(t, domain.StatusPending, g.ApprovalStatus)
	assert.Equal(t, []string{}, g.ReservedGiftIDs)

	_, err := db.SetApprovalStatus(ctx, "alice", domain.StatusApproved, "admin@example.com")
	require.NoError(t, err)

	// a later login refreshes the profile but never resets the decision
	g, err = db.UpsertGuest(ctx, domain.Profile{ID: "alice", Email: "new@example.com", DisplayName: "Alice"}, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, g.ApprovalStatus)
	assert.Equal(t, "new@example.com", g.Email)
	assert.Equal(t, "Alice", g.DisplayName)
	assert.Equal(t, "admin@example.com", g.ReviewedBy)
}

func TestGetApprovalStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedGuest(t, db, "bob", domain.StatusRejected)

	status, err := db.GetApprovalStatus(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, status)

	_, err = db.GetApprovalStatus(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
}

func TestSetApprovalStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedGuest(t, db, "carol", domain.StatusPending)

	_, err := db.SetApprovalStatus(ctx, "carol", "maybe", "admin")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = db.SetApprovalStatus(ctx, "nobody", domain.StatusApproved, "admin")
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)

	g, err := db.SetApprovalStatus(ctx, "carol", domain.StatusRejected, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, g.ApprovalStatus)
}

func TestListGuests_WithReservations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedGuest(t, db, "alice", domain.StatusApproved)
	seedGuest(t, db, "bob", domain.StatusApproved)
	gift := seedGift(t, db, "Clock", 1)

	_, err := db.ReserveGift(ctx, gift.ID, "bob", 0)
	require.NoError(t, err)

	guests, err := db.ListGuests(ctx)
	require.NoError(t, err)
	require.Len(t, guests, 2)

	byID := map[string]*domain.Guest{}
	for _, g := range guests {
		byID[g.ID] = g
	}
	assert.Equal(t, []string{gift.ID}, byID["bob"].ReservedGiftIDs)
	assert.Equal(t, []string{}, byID["alice"].ReservedGiftIDs)
}

func TestGuestPhones(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedGuest(t, db, "alice", domain.StatusApproved)
	seedGuest(t, db, "bob", domain.StatusApproved)

	require.NoError(t, db.UpdateGuestPhone(ctx, "bob", "+5511961234567"))
	assert.ErrorIs(t, db.UpdateGuestPhone(ctx, "nobody", "+5511961234567"), domain.ErrGuestNotFound)

	phones, err := db.ListGuestPhones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []GuestPhone{{ID: "bob", Phone: "+5511961234567"}}, phones)
}
