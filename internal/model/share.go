package model

import "time"

// ShareGrant is a direct, authenticated user-to-user grant on a document or
// folder. At most one grant exists per (item, grantee) pair.
type ShareGrant struct {
	ID           string     `json:"id"`
	ItemType     ItemType   `json:"item_type"`
	ItemID       string     `json:"item_id"`
	ItemName     string     `json:"item_name,omitempty"`
	OwnerID      string     `json:"owner_id"`
	GranteeID    string     `json:"grantee_id"`
	GranteeEmail string     `json:"grantee_email,omitempty"`
	Permission   Permission `json:"permission"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Message      string     `json:"message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether the grant has an expiry in the past.
func (g *ShareGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// ShareLink is an anonymous tokenized access path to a document or folder,
// optionally limited by password, expiry, and access count.
type ShareLink struct {
	ID             string     `json:"id"`
	Token          string     `json:"token"`
	ItemType       ItemType   `json:"item_type"`
	ItemID         string     `json:"item_id"`
	CreatedBy      string     `json:"created_by"`
	Permission     Permission `json:"permission"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	PasswordHash   *string    `json:"-"`
	AccessCount    int64      `json:"access_count"`
	MaxAccessCount *int64     `json:"max_access_count,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasPassword reports whether the link is password protected.
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// Expired reports whether the link has an expiry in the past.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Exhausted reports whether the access-count limit has been reached.
func (l *ShareLink) Exhausted() bool {
	return l.MaxAccessCount != nil && l.AccessCount >= *l.MaxAccessCount
}

// Valid is the single validity model shared by every public-access path:
// active AND not expired AND not exhausted.
func (l *ShareLink) Valid(now time.Time) bool {
	return l.IsActive && !l.Expired(now) && !l.Exhausted()
}
