package domain

import (
	"net/url"
	"strings"
	"time"
)

// Gift is one registry item. Claimants is a projection of the claim table and
// is never written directly.
type Gift struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	ImageRef  string    `json:"imageRef"`
	Capacity  int       `json:"capacity"`
	Claimants []string  `json:"claimants"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Available reports whether another guest may still reserve the gift.
func (g *Gift) Available() bool {
	return len(g.Claimants) < g.Capacity
}

// HasClaimant reports whether guestID currently holds the gift.
func (g *Gift) HasClaimant(guestID string) bool {
	for _, c := range g.Claimants {
		if c == guestID {
			return true
		}
	}
	return false
}

// GiftInput is the admin-editable part of a gift.
type GiftInput struct {
	Name     string `json:"name"`
	Link     string `json:"link"`
	ImageRef string `json:"imageRef"`
	// Capacity is optional; zero means "keep current" on update and
	// "use the configured default" on create.
	Capacity int `json:"capacity"`
}

// Normalize trims the input and validates it.
func (in *GiftInput) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.ImageRef = strings.TrimSpace(in.ImageRef)

	var errs []FieldError
	if in.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if in.Link != "" {
		u, err := url.Parse(in.Link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{Field: "link", Message: "must be an http(s) URL"})
		}
	}
	if in.Capacity < 0 {
		errs = append(errs, FieldError{Field: "capacity", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
