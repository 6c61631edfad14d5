package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/adonai404/empresas-imperial-sub001/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// ContentType returns the declared media type of f, or "" when the source
// carries none.
func ContentType(f File) string {
	if c, ok := f.(interface{ ContentType() string }); ok {
		return c.ContentType()
	}
	return ""
}

// IsPDF reports whether a document named name with the declared media type
// contentType can be imported. Generic binary types are accepted since
// browsers send them for unknown extensions.
func IsPDF(name, contentType string) bool {
	if !AllowedExt(filepath.Ext(name)) {
		return false
	}
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == constants.PDFContentType || mt == "application/octet-stream"
}
