package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

// LegacyGift is one gift document from the old document-store export. Early
// revisions stored a single claimant name in takenBy, later ones an array.
type LegacyGift struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Link      string          `json:"link"`
	ImagePath string          `json:"imagePath"`
	TakenBy   json.RawMessage `json:"takenBy"`
}

// Claimants normalises takenBy into a list with one entry per placeholder
// guest.
func (g LegacyGift) Claimants() ([]string, error) {
	raw := bytes.TrimSpace(g.TakenBy)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var list []string
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("gift %s: takenBy: %w", g.ID, err)
		}
	} else {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("gift %s: takenBy: %w", g.ID, err)
		}
		list = []string{single}
	}

	// claimants that map to the same guest id count once; the first spelling wins
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, c := range list {
		c = strings.TrimSpace(c)
		id := LegacyGuestID(c)
		if c == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out, nil
}

// LegacyGuestID is the placeholder guest id for a claimant known only by
// name or email in the old data.
func LegacyGuestID(claimant string) string {
	return "legacy:" + strings.ToLower(claimant)
}

type ImportStats struct {
	Gifts   int
	Claims  int
	Skipped int
}

// ImportLegacyGifts writes legacy gifts in the current shape. Each gift and
// its claims go in one transaction; gifts whose id already exists are skipped
// so the import can be re-run.
func (db *DB) ImportLegacyGifts(ctx context.Context, gifts []LegacyGift, defaultCapacity int) (ImportStats, error) {
	var stats ImportStats
	for _, lg := range gifts {
		claimants, err := lg.Claimants()
		if err != nil {
			return stats, err
		}
		name := strings.TrimSpace(lg.Name)
		if lg.ID == "" || name == "" {
			stats.Skipped++
			continue
		}

		capacity := defaultCapacity
		if len(claimants) > capacity {
			capacity = len(claimants)
		}

		imported := false
		err = db.withTx(ctx, func(tx *sql.Tx) error {
			now := time.Now().UTC()
			n, err := db.exec(ctx, tx, db.sq.Insert("gifts").
				Columns("id", "name", "link", "image_ref", "capacity", "claim_count", "created_at", "updated_at").
				Values(lg.ID, name, strings.TrimSpace(lg.Link), lg.ImagePath, capacity, len(claimants), now, now).
				Suffix("ON CONFLICT DO NOTHING"))
			if err != nil {
				return fmt.Errorf("failed to import gift %s: %w", lg.ID, err)
			}
			if n == 0 {
				return nil
			}

			for _, c := range claimants {
				guestID := LegacyGuestID(c)
				email := ""
				if strings.Contains(c, "@") {
					email = strings.ToLower(c)
				}
				if _, err := db.exec(ctx, tx, db.sq.Insert("guests").
					Columns("id", "email", "display_name", "approval_status", "reviewed_by", "created_at", "last_login_at", "updated_at").
					Values(guestID, email, c, string(domain.StatusApproved), "legacy-import", now, now, now).
					Suffix("ON CONFLICT DO NOTHING")); err != nil {
					return fmt.Errorf("failed to import claimant %q: %w", c, err)
				}
				if _, err := db.exec(ctx, tx, db.sq.Insert("gift_claims").
					Columns("gift_id", "guest_id", "claimed_at").
					Values(lg.ID, guestID, now)); err != nil {
					return fmt.Errorf("failed to import claim %s/%s: %w", lg.ID, guestID, err)
				}
			}
			imported = true
			return nil
		})
		if err != nil {
			return stats, err
		}

		if imported {
			stats.Gifts++
			stats.Claims += len(claimants)
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}
