package model

import "time"

// Folder is a node in a user's namespace tree. The parent is referenced by
// id, never by pointer, so cycle checks walk ids upward instead of chasing
// object references.
type Folder struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ParentID    *string    `json:"parent_id"` // nil = root-level
	Name        string     `json:"name"`
	Path        string     `json:"path"` // always parent.Path + "/" + Name
	Color       string     `json:"color,omitempty"`
	Description string     `json:"description,omitempty"`
	IsRoot      bool       `json:"is_root"`
	IsDeleted   bool       `json:"-"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChildPath computes the path of a child named name under f.
func (f *Folder) ChildPath(name string) string {
	return f.Path + "/" + name
}

// FolderTree is one node of the tree read model. The virtual root synthesized
// for users without a materialized root carries a nil ID.
type FolderTree struct {
	ID            *string       `json:"id"`
	Name          string        `json:"name"`
	Path          string        `json:"path"`
	Color         string        `json:"color,omitempty"`
	IsRoot        bool          `json:"is_root"`
	DocumentCount int           `json:"document_count"`
	Children      []*FolderTree `json:"children"`
}
