package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

// InviteTokenLength is the length of an invite token in hex characters.
const InviteTokenLength = 12

var inviteColumns = []string{"token", "guest_id", "email", "name", "used", "confirmed", "created_at", "used_at", "confirmed_at"}

func GenerateToken() (string, error) {
	b := make([]byte, InviteTokenLength/2)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidToken reports whether s has the shape of an invite token.
func ValidToken(s string) bool {
	if len(s) != InviteTokenLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// CreateInvite creates a new invite with a unique token
func (db *DB) CreateInvite(ctx context.Context) (*domain.Invite, error) {
	maxRetries := 5
	now := time.Now().UTC()

	for i := 0; i < maxRetries; i++ {
		token, err := GenerateToken()
		if err != nil {
			return nil, err
		}

		_, err = db.exec(ctx, db.DB, db.sq.Insert("invites").
			Columns("token", "used", "confirmed", "created_at").
			Values(token, false, false, now))
		if err == nil {
			return db.GetInvite(ctx, token)
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create invite: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to generate unique token after %d retries", maxRetries)
}

// GetInvite retrieves an invite by token
func (db *DB) GetInvite(ctx context.Context, token string) (*domain.Invite, error) {
	return db.getInvite(ctx, db.DB, token)
}

func (db *DB) getInvite(ctx context.Context, q queryer, token string) (*domain.Invite, error) {
	rows, err := db.query(ctx, q, db.sq.Select(inviteColumns...).From("invites").Where(sq.Eq{"token": token}))
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	defer rows.Close()

	invites, err := scanInvites(rows)
	if err != nil {
		return nil, err
	}
	if len(invites) == 0 {
		return nil, domain.ErrInviteNotFound
	}
	return invites[0], nil
}

// ListInvites retrieves all invites, newest first
func (db *DB) ListInvites(ctx context.Context) ([]*domain.Invite, error) {
	rows, err := db.query(ctx, db.DB, db.sq.Select(inviteColumns...).From("invites").OrderBy("created_at DESC", "token"))
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	defer rows.Close()

	return scanInvites(rows)
}

func scanInvites(rows *sql.Rows) ([]*domain.Invite, error) {
	var invites []*domain.Invite
	for rows.Next() {
		inv := &domain.Invite{}
		var guestID sql.NullString
		var usedAt, confirmedAt sql.NullTime
		if err := rows.Scan(&inv.Token, &guestID, &inv.Email, &inv.Name, &inv.Used, &inv.Confirmed,
			&inv.CreatedAt, &usedAt, &confirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		inv.GuestID = guestID.String
		if usedAt.Valid {
			inv.UsedAt = &usedAt.Time
		}
		if confirmedAt.Valid {
			inv.ConfirmedAt = &confirmedAt.Time
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}
	return invites, nil
}

// RedeemInvite binds an unused invite to a guest and approves that guest,
// unless an admin already rejected them. Redeeming the same invite again
// as the same guest is a no-op.
func (db *DB) RedeemInvite(ctx context.Context, token string, guest *domain.Guest) (*domain.Invite, error) {
	var inv *domain.Invite
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		n, err := db.exec(ctx, tx, db.sq.Update("invites").
			Set("used", true).
			Set("guest_id", guest.ID).
			Set("email", guest.Email).
			Set("name", guest.DisplayName).
			Set("used_at", sq.Expr("COALESCE(used_at, ?)", now)).
			Where(sq.Eq{"token": token}).
			Where(sq.Or{sq.Eq{"used": false}, sq.Eq{"guest_id": guest.ID}}))
		if err != nil {
			return fmt.Errorf("failed to redeem invite: %w", err)
		}
		if n == 0 {
			found, err := db.exists(ctx, tx, "invites", "token", token)
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrInviteNotFound
			}
			return domain.ErrInviteUsed
		}

		if _, err := db.exec(ctx, tx, db.sq.Update("guests").
			Set("approval_status", string(domain.StatusApproved)).
			Set("reviewed_by", "invite:"+token).
			Set("reviewed_at", now).
			Set("updated_at", now).
			Where(sq.Eq{"id": guest.ID, "approval_status": string(domain.StatusPending)})); err != nil {
			return fmt.Errorf("failed to approve invited guest: %w", err)
		}

		inv, err = db.getInvite(ctx, tx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ConfirmPresence marks the invite held by guestID as confirmed. first is
// true only for the call that flipped it, so concurrent confirms report a
// single first confirmation.
func (db *DB) ConfirmPresence(ctx context.Context, token, guestID string) (inv *domain.Invite, first bool, err error) {
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		n, err := db.exec(ctx, tx, db.sq.Update("invites").
			Set("confirmed", true).
			Set("confirmed_at", time.Now().UTC()).
			Where(sq.Eq{"token": token, "used": true, "guest_id": guestID, "confirmed": false}))
		if err != nil {
			return fmt.Errorf("failed to confirm presence: %w", err)
		}

		inv, err = db.getInvite(ctx, tx, token)
		if err != nil {
			return err
		}
		switch {
		case n == 1:
			first = true
		case !inv.Used:
			return domain.ErrInviteNotRedeemed
		case inv.GuestID != guestID:
			return domain.ErrInviteUsed
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return inv, first, nil
}

// DeleteInvite removes an invite that has not been redeemed.
func (db *DB) DeleteInvite(ctx context.Context, token string) error {
	n, err := db.exec(ctx, db.DB, db.sq.Delete("invites").Where(sq.Eq{"token": token, "used": false}))
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if n == 0 {
		if _, err := db.GetInvite(ctx, token); err != nil {
			return err
		}
		return domain.ErrInviteUsed
	}
	return nil
}
