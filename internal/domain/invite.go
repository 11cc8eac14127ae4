package domain

import "time"

// Invite is a single-use link handed to a guest by the admin.
type Invite struct {
	Token       string     `json:"token"`
	GuestID     string     `json:"guestId,omitempty"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	Used        bool       `json:"used"`
	Confirmed   bool       `json:"confirmed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}
