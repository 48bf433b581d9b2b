package model

// Package model contains the domain models of the vault.
// These are pure data structures with no database-specific dependencies or
// tags beyond JSON; they can be used across layers (HTTP, service, storage)
// without coupling to persistence.

// ItemType distinguishes the two shareable/trashable resource kinds.
type ItemType string

const (
	ItemDocument ItemType = "DOCUMENT"
	ItemFolder   ItemType = "FOLDER"
)

// Permission is a share permission level, ordered VIEW < DOWNLOAD < EDIT.
type Permission string

const (
	PermissionView     Permission = "VIEW"
	PermissionDownload Permission = "DOWNLOAD"
	PermissionEdit     Permission = "EDIT"
)

var permissionRank = map[Permission]int{
	PermissionView:     1,
	PermissionDownload: 2,
	PermissionEdit:     3,
}

// Valid reports whether p is a known permission level.
func (p Permission) Valid() bool {
	_, ok := permissionRank[p]
	return ok
}

// AtLeast reports whether p grants at least the level of other.
func (p Permission) AtLeast(other Permission) bool {
	return permissionRank[p] >= permissionRank[other]
}

// Max returns the higher of the two permission levels.
func (p Permission) Max(other Permission) Permission {
	if permissionRank[other] > permissionRank[p] {
		return other
	}
	return p
}
