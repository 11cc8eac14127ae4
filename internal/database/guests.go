package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

var guestColumns = []string{"id", "email", "display_name", "photo_url", "phone",
	"approval_status", "reviewed_by", "created_at", "last_login_at"}

// UpsertGuest records a login. New guests start with initialStatus; existing
// guests keep their approval status and only get their profile refreshed.
func (db *DB) UpsertGuest(ctx context.Context, p domain.Profile, initialStatus domain.ApprovalStatus) (*domain.Guest, error) {
	now := time.Now().UTC()
	_, err := db.exec(ctx, db.DB, db.sq.Insert("guests").
		Columns("id", "email", "display_name", "photo_url", "approval_status", "created_at", "last_login_at", "updated_at").
		Values(p.ID, p.Email, p.DisplayName, p.PhotoURL, string(initialStatus), now, now, now).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			last_login_at = excluded.last_login_at,
			updated_at = excluded.updated_at`))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guest: %w", err)
	}

	return db.GetGuest(ctx, p.ID)
}

// GetGuest retrieves a guest together with the gifts it holds.
func (db *DB) GetGuest(ctx context.Context, id string) (*domain.Guest, error) {
	g := &domain.Guest{}
	var status string
	err := db.scanRow(ctx, db.DB, db.sq.Select(guestColumns...).From("guests").Where(sq.Eq{"id": id}),
		&g.ID, &g.Email, &g.DisplayName, &g.PhotoURL, &g.Phone, &status, &g.ReviewedBy, &g.CreatedAt, &g.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	g.ApprovalStatus = domain.ApprovalStatus(status)

	g.ReservedGiftIDs, err = db.reservedGiftIDs(ctx, db.DB, id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetApprovalStatus is the narrow lookup used by the approval gate.
func (db *DB) GetApprovalStatus(ctx context.Context, id string) (domain.ApprovalStatus, error) {
	var status string
	err := db.scanRow(ctx, db.DB, db.sq.Select("approval_status").From("guests").Where(sq.Eq{"id": id}), &status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrGuestNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get approval status: %w", err)
	}
	return domain.ApprovalStatus(status), nil
}

// ListGuests returns every guest, newest first.
func (db *DB) ListGuests(ctx context.Context) ([]*domain.Guest, error) {
	claims, err := db.claimsByGuest(ctx, db.DB)
	if err != nil {
		return nil, err
	}

	rows, err := db.query(ctx, db.DB, db.sq.Select(guestColumns...).From("guests").OrderBy("created_at DESC", "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get guests: %w", err)
	}
	defer rows.Close()

	var guests []*domain.Guest
	for rows.Next() {
		g := &domain.Guest{}
		var status string
		if err := rows.Scan(&g.ID, &g.Email, &g.DisplayName, &g.PhotoURL, &g.Phone, &status,
			&g.ReviewedBy, &g.CreatedAt, &g.LastLoginAt); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		g.ApprovalStatus = domain.ApprovalStatus(status)
		g.ReservedGiftIDs = claims[g.ID]
		if g.ReservedGiftIDs == nil {
			g.ReservedGiftIDs = []string{}
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}

	return guests, nil
}

// SetApprovalStatus records an admin decision about a guest.
func (db *DB) SetApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus, reviewer string) (*domain.Guest, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown approval status")
	}
	now := time.Now().UTC()
	n, err := db.exec(ctx, db.DB, db.sq.Update("guests").
		Set("approval_status", string(status)).
		Set("reviewed_by", reviewer).
		Set("reviewed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("failed to update approval status: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrGuestNotFound
	}
	return db.GetGuest(ctx, id)
}

// UpdateGuestPhone stores an already normalised phone number.
func (db *DB) UpdateGuestPhone(ctx context.Context, id, phone string) error {
	n, err := db.exec(ctx, db.DB, db.sq.Update("guests").
		Set("phone", phone).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update guest phone: %w", err)
	}
	if n == 0 {
		return domain.ErrGuestNotFound
	}
	return nil
}

// GuestPhone is a guest id paired with its stored phone number.
type GuestPhone struct {
	ID    string
	Phone string
}

// ListGuestPhones returns guests that have a phone number on file.
func (db *DB) ListGuestPhones(ctx context.Context) ([]GuestPhone, error) {
	rows, err := db.query(ctx, db.DB, db.sq.Select("id", "phone").From("guests").
		Where(sq.NotEq{"phone": ""}).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get guest phones: %w", err)
	}
	defer rows.Close()

	var out []GuestPhone
	for rows.Next() {
		var gp GuestPhone
		if err := rows.Scan(&gp.ID, &gp.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan guest phone: %w", err)
		}
		out = append(out, gp)
	}
	return out, rows.Err()
}
