package domain

import "time"

type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Guest is an authenticated participant. ReservedGiftIDs is derived from the
// claim table on read.
type Guest struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	DisplayName     string         `json:"displayName"`
	PhotoURL        string         `json:"photoUrl,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	ApprovalStatus  ApprovalStatus `json:"approvalStatus"`
	ReviewedBy      string         `json:"reviewedBy,omitempty"`
	ReservedGiftIDs []string       `json:"reservedGiftIds"`
	CreatedAt       time.Time      `json:"createdAt"`
	LastLoginAt     time.Time      `json:"lastLoginAt"`
}

// Profile is what the identity provider tells us about a person at login.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}
