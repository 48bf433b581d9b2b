package model

import "time"

// User carries the identity and quota ledger fields the vault needs.
// Authentication and profile management live outside the core.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	StorageUsedBytes  int64     `json:"storage_used_bytes"`
	StorageLimitBytes int64     `json:"storage_limit_bytes"`
	CreatedAt         time.Time `json:"created_at"`
}

// AvailableStorage returns the remaining quota headroom, clamped at zero.
func (u *User) AvailableStorage() int64 {
	avail := u.StorageLimitBytes - u.StorageUsedBytes
	if avail < 0 {
		return 0
	}
	return avail
}
