package model

import "time"

// Category groups documents for automatic organization.
type Category string

const (
	CategoryDocuments     Category = "DOCUMENTS"
	CategoryImages        Category = "IMAGES"
	CategoryVideos        Category = "VIDEOS"
	CategoryAudio         Category = "AUDIO"
	CategoryArchives      Category = "ARCHIVES"
	CategoryCode          Category = "CODE"
	CategorySpreadsheets  Category = "SPREADSHEETS"
	CategoryPresentations Category = "PRESENTATIONS"
	CategoryOthers        Category = "OTHERS"
)

// Document represents a stored file in the vault.
type Document struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FolderID       *string    `json:"folder_id"` // nil = user's unfiled root
	Name           string     `json:"name"`
	OriginalName   string     `json:"original_name"`
	FileSize       int64      `json:"file_size"`
	FileType       string     `json:"file_type"` // extension, lowercased, no dot
	MimeType       string     `json:"mime_type"`
	Category       Category   `json:"category"`
	StorageKey     string     `json:"-"`
	Checksum       string     `json:"checksum"`
	Version        int        `json:"version"`
	IsFavorite     bool       `json:"is_favorite"`
	DownloadCount  int64      `json:"download_count"`
	IsDeleted      bool       `json:"-"`
	DeletedAt      *time.Time `json:"-"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
	Tags           []string   `json:"tags,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DocumentMetadata is the optional sidecar holding extended attributes of a
// document: a free-form JSON attribute map plus the extracted fields used for
// search and media display. At most one row exists per document.
type DocumentMetadata struct {
	DocumentID      string         `json:"document_id"`
	Attributes      map[string]any `json:"attributes"`
	ExtractedText   *string        `json:"extracted_text,omitempty"`
	PageCount       *int           `json:"page_count,omitempty"`
	Width           *int           `json:"width,omitempty"`
	Height          *int           `json:"height,omitempty"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty"`
	Author          *string        `json:"author,omitempty"`
	Title           *string        `json:"title,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DocumentVersion is an immutable snapshot taken whenever a document's
// content is replaced. History is append-only; rows are never mutated.
type DocumentVersion struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	StorageKey    string    `json:"-"`
	FileSize      int64     `json:"file_size"`
	Checksum      string    `json:"checksum"`
	ChangeNote    string    `json:"change_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
