package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

var giftColumns = []string{"g.id", "g.name", "g.link", "g.image_ref", "g.capacity", "g.created_at", "g.updated_at", "c.guest_id"}

// CreateGift inserts a new gift with no claimants.
func (db *DB) CreateGift(ctx context.Context, in domain.GiftInput) (*domain.Gift, error) {
	now := time.Now().UTC()
	gift := &domain.Gift{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Link:      in.Link,
		ImageRef:  in.ImageRef,
		Capacity:  in.Capacity,
		Claimants: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.exec(ctx, db.DB, db.sq.Insert("gifts").
		Columns("id", "name", "link", "image_ref", "capacity", "claim_count", "created_at", "updated_at").
		Values(gift.ID, gift.Name, gift.Link, gift.ImageRef, gift.Capacity, 0, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create gift: %w", err)
	}

	return gift, nil
}

// GetGift retrieves a gift with its current claimants.
func (db *DB) GetGift(ctx context.Context, id string) (*domain.Gift, error) {
	return db.getGift(ctx, db.DB, id)
}

func (db *DB) getGift(ctx context.Context, q queryer, id string) (*domain.Gift, error) {
	gifts, err := db.scanGifts(ctx, q, db.sq.Select(giftColumns...).
		From("gifts g").
		LeftJoin("gift_claims c ON c.gift_id = g.id").
		Where(sq.Eq{"g.id": id}).
		OrderBy("c.claimed_at", "c.guest_id"))
	if err != nil {
		return nil, err
	}
	if len(gifts) == 0 {
		return nil, domain.ErrGiftNotFound
	}
	return gifts[0], nil
}

// ListGifts returns every gift with its claimants. It is a single statement,
// so the result is a consistent snapshot.
func (db *DB) ListGifts(ctx context.Context) ([]*domain.Gift, error) {
	return db.scanGifts(ctx, db.DB, db.sq.Select(giftColumns...).
		From("gifts g").
		LeftJoin("gift_claims c ON c.gift_id = g.id").
		OrderBy("g.created_at DESC", "g.id", "c.claimed_at", "c.guest_id"))
}

func (db *DB) scanGifts(ctx context.Context, q queryer, b sq.Sqlizer) ([]*domain.Gift, error) {
	rows, err := db.query(ctx, q, b)
	if err != nil {
		return nil, fmt.Errorf("failed to get gifts: %w", err)
	}
	defer rows.Close()

	var gifts []*domain.Gift
	byID := make(map[string]*domain.Gift)
	for rows.Next() {
		g := &domain.Gift{}
		var claimant sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.Link, &g.ImageRef, &g.Capacity,
			&g.CreatedAt, &g.UpdatedAt, &claimant); err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}

		existing, ok := byID[g.ID]
		if !ok {
			g.Claimants = []string{}
			byID[g.ID] = g
			gifts = append(gifts, g)
			existing = g
		}
		if claimant.Valid {
			existing.Claimants = append(existing.Claimants, claimant.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gifts: %w", err)
	}

	return gifts, nil
}

// UpdateGift changes the descriptive fields of a gift and, when in.Capacity
// is positive, its capacity. Claims are never touched here.
func (db *DB) UpdateGift(ctx context.Context, id string, in domain.GiftInput) (*domain.Gift, error) {
	var gift *domain.Gift
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		b := db.sq.Update("gifts").
			Set("name", in.Name).
			Set("link", in.Link).
			Set("image_ref", in.ImageRef).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id})
		if in.Capacity > 0 {
			b = b.Set("capacity", in.Capacity).Where(sq.LtOrEq{"claim_count": in.Capacity})
		}

		n, err := db.exec(ctx, tx, b)
		if err != nil {
			return fmt.Errorf("failed to update gift: %w", err)
		}
		if n == 0 {
			found, err := db.exists(ctx, tx, "gifts", "id", id)
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrGiftNotFound
			}
			return domain.ErrCapacityBelowClaims
		}

		gift, err = db.getGift(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gift, nil
}

// DeleteGift removes a gift only if nobody holds it.
func (db *DB) DeleteGift(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		n, err := db.exec(ctx, tx, db.sq.Delete("gifts").
			Where(sq.Eq{"id": id, "claim_count": 0}))
		if err != nil {
			if isConstraintError(err) {
				return domain.ErrGiftClaimed
			}
			return fmt.Errorf("failed to delete gift: %w", err)
		}
		if n == 1 {
			return nil
		}

		found, err := db.exists(ctx, tx, "gifts", "id", id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrGiftNotFound
		}
		return domain.ErrGiftClaimed
	})
}
