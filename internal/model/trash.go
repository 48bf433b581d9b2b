package model

import "time"

// TrashRecord is the time-boxed holding record for a soft-deleted item.
// It exists exactly while the underlying item is soft-deleted and is removed
// atomically with restore or purge.
//
// Records created by one cascading folder delete share a CascadeID, so that
// restoring the folder's record restores precisely the items that delete
// took down, and nothing that was trashed independently beforehand.
type TrashRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ItemType     ItemType  `json:"item_type"`
	ItemID       string    `json:"item_id"`
	ItemName     string    `json:"item_name"`
	OriginalPath string    `json:"original_path"`
	FileSize     *int64    `json:"file_size,omitempty"` // documents only
	CascadeID    string    `json:"-"`
	DeletedAt    time.Time `json:"deleted_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its retention deadline.
func (t *TrashRecord) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// DaysUntilPurge returns the whole days left before permanent deletion,
// clamped at zero.
func (t *TrashRecord) DaysUntilPurge(now time.Time) int {
	d := int(t.ExpiresAt.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
