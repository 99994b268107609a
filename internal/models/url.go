package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// OwnerID identifies the user who created the URL. The identity is supplied
	// by an external auth provider and is trusted as given.
	OwnerID int64
	// ClickCount tracks the number of times the shortened URL has been visited.
	ClickCount int64
	// IsActive indicates whether the URL can still be used for redirects.
	IsActive bool
	// ExpiresAt is an optional moment after which redirects are denied.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the shortened URL was last updated.
	UpdatedAt time.Time
}

// Expired reports whether the URL has an expiry moment in the past.
func (u *URL) Expired() bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(time.Now())
}

// Click represents a single recorded visit of a shortened URL.
// Click records are append-only and are removed only when the owning URL is deleted.
type Click struct {
	ID        int64
	URLID     int64
	ClickedAt time.Time
	ClickMeta
}

// ClickMeta holds best-effort requester metadata captured at redirect time.
// Every field is optional; missing values never prevent a click from being recorded.
type ClickMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
	Country   string
	City      string
}
