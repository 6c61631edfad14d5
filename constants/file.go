package constants

import "strings"

// Batch limits.
const (
	MaxBatchFiles    = 10
	MaxFileSizeMB    = 20
	MaxFileSizeBytes = int64(MaxFileSizeMB) * 1024 * 1024
	MaxPDFPages      = 50
	MaxTextChars     = 15000
)

// AllowedExtensions holds the file extensions accepted for fiscal imports.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// PDFContentType is the MIME type expected for uploads.
const PDFContentType = "application/pdf"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// XLSXContentType is served with workbook downloads.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
