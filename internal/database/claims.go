package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

// ReserveGift adds guestID to the gift's claimants if a slot is free.
//
// Everything happens in one transaction. The guest row is touched first so
// concurrent reservations by the same guest serialise, then the gift counter
// is advanced with a conditional UPDATE that only succeeds while
// claim_count < capacity. The conditional UPDATE is the linearisation point
// between competing guests; the gift is never read and then written.
//
// maxPerGuest limits how many gifts one guest may hold; zero disables it.
func (db *DB) ReserveGift(ctx context.Context, giftID, guestID string, maxPerGuest int) (*domain.Gift, error) {
	var gift *domain.Gift
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		n, err := db.exec(ctx, tx, db.sq.Update("guests").
			Set("updated_at", now).
			Where(sq.Eq{"id": guestID, "approval_status": string(domain.StatusApproved)}))
		if err != nil {
			return fmt.Errorf("failed to lock guest: %w", err)
		}
		if n == 0 {
			return domain.ErrGuestNotApproved
		}

		var held int
		if err := db.scanRow(ctx, tx, db.sq.Select("COUNT(*)").From("gift_claims").
			Where(sq.Eq{"guest_id": guestID}), &held); err != nil {
			return fmt.Errorf("failed to count guest claims: %w", err)
		}
		holds, err := db.exists(ctx, tx, "gift_claims", "gift_id", giftID, sq.Eq{"guest_id": guestID})
		if err != nil {
			return err
		}
		if holds {
			return domain.ErrAlreadyReserved
		}
		if maxPerGuest > 0 && held >= maxPerGuest {
			return domain.ErrGuestLimitReached
		}

		n, err = db.exec(ctx, tx, db.sq.Update("gifts").
			Set("claim_count", sq.Expr("claim_count + 1")).
			Set("updated_at", now).
			Where(sq.Eq{"id": giftID}).
			Where("claim_count < capacity"))
		if err != nil {
			return fmt.Errorf("failed to claim gift slot: %w", err)
		}
		if n == 0 {
			found, err := db.exists(ctx, tx, "gifts", "id", giftID)
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrGiftNotFound
			}
			return domain.ErrGiftAtCapacity
		}

		n, err = db.exec(ctx, tx, db.sq.Insert("gift_claims").
			Columns("gift_id", "guest_id", "claimed_at").
			Values(giftID, guestID, now).
			Suffix("ON CONFLICT DO NOTHING"))
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}
		if n == 0 {
			return domain.ErrAlreadyReserved
		}

		gift, err = db.getGift(ctx, tx, giftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}

// ReleaseGift removes exactly the (giftID, guestID) claim. A claim held by
// anyone else is left alone.
func (db *DB) ReleaseGift(ctx context.Context, giftID, guestID string) (*domain.Gift, error) {
	var gift *domain.Gift
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		n, err := db.exec(ctx, tx, db.sq.Delete("gift_claims").
			Where(sq.Eq{"gift_id": giftID, "guest_id": guestID}))
		if err != nil {
			return fmt.Errorf("failed to delete claim: %w", err)
		}
		if n == 0 {
			found, err := db.exists(ctx, tx, "gifts", "id", giftID)
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrGiftNotFound
			}
			return domain.ErrNotReserved
		}

		if _, err := db.exec(ctx, tx, db.sq.Update("gifts").
			Set("claim_count", sq.Expr("claim_count - 1")).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": giftID}).
			Where("claim_count > 0")); err != nil {
			return fmt.Errorf("failed to free gift slot: %w", err)
		}

		gift, err = db.getGift(ctx, tx, giftID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}

// ReservedGiftIDs returns the gifts a guest currently holds, oldest first.
func (db *DB) ReservedGiftIDs(ctx context.Context, guestID string) ([]string, error) {
	return db.reservedGiftIDs(ctx, db.DB, guestID)
}

func (db *DB) reservedGiftIDs(ctx context.Context, q queryer, guestID string) ([]string, error) {
	rows, err := db.query(ctx, q, db.sq.Select("gift_id").From("gift_claims").
		Where(sq.Eq{"guest_id": guestID}).
		OrderBy("claimed_at", "gift_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get reserved gifts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reserved gift: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// claimsByGuest maps every guest id to the gifts it holds.
func (db *DB) claimsByGuest(ctx context.Context, q queryer) (map[string][]string, error) {
	rows, err := db.query(ctx, q, db.sq.Select("guest_id", "gift_id").From("gift_claims").
		OrderBy("claimed_at", "gift_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}
	defer rows.Close()

	claims := make(map[string][]string)
	for rows.Next() {
		var guestID, giftID string
		if err := rows.Scan(&guestID, &giftID); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims[guestID] = append(claims[guestID], giftID)
	}
	return claims, rows.Err()
}
