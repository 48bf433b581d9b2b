package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docvault/internal/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		want     model.Category
	}{
		{"pdf by extension", "report.pdf", "", model.CategoryDocuments},
		{"extension wins over mime", "listing.go", "image/png", model.CategoryCode},
		{"uppercase extension", "PHOTO.JPG", "", model.CategoryImages},
		{"mime fallback image", "raw-scan", "image/x-canon-cr2", model.CategoryImages},
		{"mime fallback spreadsheet", "export", "application/vnd.ms-excel", model.CategorySpreadsheets},
		{"archive mime", "bundle", "application/gzip", model.CategoryArchives},
		{"unknown everything", "mystery.bin", "application/octet-stream", model.CategoryOthers},
		{"no extension no mime", "README", "", model.CategoryOthers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.fileName, tt.mimeType))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("a.PDF"))
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
	assert.Equal(t, "", Extension("noext"))
	assert.Equal(t, "", Extension("trailingdot."))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "q1", BaseName("q1.pdf"))
	assert.Equal(t, "archive.tar", BaseName("archive.tar.gz"))
	assert.Equal(t, "noext", BaseName("noext"))
	assert.Equal(t, ".env", BaseName(".env"))
}
