package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AlexTLDR/giftregistry/internal/domain"
)

// InsertEmailLog records a notification attempt.
func (db *DB) InsertEmailLog(ctx context.Context, l domain.EmailLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := db.exec(ctx, db.DB, db.sq.Insert("email_logs").
		Columns("id", "type", "recipients", "subject", "sent_at", "message_id", "error").
		Values(l.ID, l.Type, l.To, l.Subject, l.SentAt.UTC(), l.MessageID, l.Error))
	if err != nil {
		return fmt.Errorf("failed to insert email log: %w", err)
	}
	return nil
}

// ListEmailLogs returns the most recent log entries first.
func (db *DB) ListEmailLogs(ctx context.Context, limit int) ([]domain.EmailLog, error) {
	rows, err := db.query(ctx, db.DB, db.sq.Select("id", "type", "recipients", "subject", "sent_at", "message_id", "error").
		From("email_logs").
		OrderBy("sent_at DESC", "id").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to get email logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.EmailLog{}
	for rows.Next() {
		var l domain.EmailLog
		if err := rows.Scan(&l.ID, &l.Type, &l.To, &l.Subject, &l.SentAt, &l.MessageID, &l.Error); err != nil {
			return nil, fmt.Errorf("failed to scan email log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
