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

const settingsRowID = 1

// GetEventSettings returns the stored event details, or defaults when the
// admin has not saved any yet.
func (db *DB) GetEventSettings(ctx context.Context, defaults domain.EventSettings) (*domain.EventSettings, error) {
	s := &domain.EventSettings{}
	var lat, lng sql.NullFloat64
	var updatedAt sql.NullTime
	err := db.scanRow(ctx, db.DB, db.sq.Select("address", "latitude", "longitude", "event_date", "event_time",
		"require_approval", "updated_at", "updated_by").From("event_settings").Where(sq.Eq{"id": settingsRowID}),
		&s.Address, &lat, &lng, &s.EventDate, &s.EventTime, &s.RequireApproval, &updatedAt, &s.UpdatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event settings: %w", err)
	}
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}
	s.UpdatedAt = updatedAt.Time
	return s, nil
}

// SaveEventSettings replaces the event details.
func (db *DB) SaveEventSettings(ctx context.Context, s domain.EventSettings, updatedBy string) (*domain.EventSettings, error) {
	s.UpdatedAt = time.Now().UTC()
	s.UpdatedBy = updatedBy

	_, err := db.exec(ctx, db.DB, db.sq.Insert("event_settings").
		Columns("id", "address", "latitude", "longitude", "event_date", "event_time", "require_approval", "updated_at", "updated_by").
		Values(settingsRowID, s.Address, nullFloat(s.Latitude), nullFloat(s.Longitude), s.EventDate, s.EventTime,
			s.RequireApproval, s.UpdatedAt, s.UpdatedBy).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			address = excluded.address,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			event_date = excluded.event_date,
			event_time = excluded.event_time,
			require_approval = excluded.require_approval,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`))
	if err != nil {
		return nil, fmt.Errorf("failed to save event settings: %w", err)
	}
	return &s, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
