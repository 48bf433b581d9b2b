package filetype

import (
	"strings"

	"docvault/internal/model"
)

// Package filetype classifies uploads into categories. Classification is
// extension-first, MIME-prefix second, OTHERS as the fallback.

var categoryExtensions = map[model.Category][]string{
	model.CategoryDocuments:     {"pdf", "doc", "docx", "txt", "rtf", "odt", "xps", "epub", "md"},
	model.CategoryImages:        {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "ico", "tiff", "tif", "heic", "heif"},
	model.CategoryVideos:        {"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm", "m4v", "mpeg", "mpg", "3gp"},
	model.CategoryAudio:         {"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "aiff", "opus"},
	model.CategoryArchives:      {"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "iso"},
	model.CategorySpreadsheets:  {"xls", "xlsx", "csv", "ods", "numbers"},
	model.CategoryPresentations: {"ppt", "pptx", "odp", "key"},
	model.CategoryCode: {
		"java", "py", "js", "ts", "html", "css", "json", "xml", "sql", "sh", "bash",
		"c", "cpp", "h", "go", "rs", "rb", "php", "swift", "kt", "scala", "yaml", "yml",
	},
}

var categoryMimePrefixes = map[model.Category][]string{
	model.CategoryImages: {"image/"},
	model.CategoryVideos: {"video/"},
	model.CategoryAudio:  {"audio/"},
	model.CategoryDocuments: {
		"application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml",
	},
	model.CategorySpreadsheets: {
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml",
	},
	model.CategoryPresentations: {
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml",
	},
	model.CategoryArchives: {
		"application/zip", "application/x-rar", "application/x-7z",
		"application/x-tar", "application/gzip",
	},
}

var extensionIndex = buildExtensionIndex()

func buildExtensionIndex() map[string]model.Category {
	idx := make(map[string]model.Category)
	for cat, exts := range categoryExtensions {
		for _, ext := range exts {
			idx[ext] = cat
		}
	}
	return idx
}

// Extension returns the lowercased extension of fileName without the dot,
// or "" when there is none.
func Extension(fileName string) string {
	i := strings.LastIndexByte(fileName, '.')
	if i < 0 || i == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[i+1:])
}

// BaseName returns fileName without its extension.
func BaseName(fileName string) string {
	i := strings.LastIndexByte(fileName, '.')
	if i <= 0 {
		return fileName
	}
	return fileName[:i]
}

// Categorize classifies a file by extension first, MIME type second.
func Categorize(fileName, mimeType string) model.Category {
	if cat, ok := extensionIndex[Extension(fileName)]; ok {
		return cat
	}
	if mimeType != "" {
		for cat, prefixes := range categoryMimePrefixes {
			for _, p := range prefixes {
				if strings.HasPrefix(mimeType, p) {
					return cat
				}
			}
		}
	}
	return model.CategoryOthers
}
