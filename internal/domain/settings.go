package domain

import (
	"strings"
	"time"
)

// EventSettings holds the single set of event details shown to guests.
type EventSettings struct {
	Address         string    `json:"address"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	EventDate       string    `json:"eventDate"`
	EventTime       string    `json:"eventTime"`
	RequireApproval bool      `json:"requireApproval"`
	UpdatedAt       time.Time `json:"updatedAt"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
}

// Validate checks the fields an admin may submit.
func (s *EventSettings) Validate() error {
	s.Address = strings.TrimSpace(s.Address)
	if s.Address == "" {
		return NewValidationError("address", "required")
	}
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90) {
		return NewValidationError("latitude", "out of range")
	}
	if s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180) {
		return NewValidationError("longitude", "out of range")
	}
	if s.EventDate != "" {
		if _, err := time.Parse(time.DateOnly, s.EventDate); err != nil {
			return NewValidationError("eventDate", "must be YYYY-MM-DD")
		}
	}
	if s.EventTime != "" {
		if _, err := time.Parse("15:04", s.EventTime); err != nil {
			return NewValidationError("eventTime", "must be HH:MM")
		}
	}
	return nil
}

// EmailLog records one notification hand-off to the mail server.
type EmailLog struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sentAt"`
	MessageID string    `json:"messageId,omitempty"`
	Error     string    `json:"error,omitempty"`
}
