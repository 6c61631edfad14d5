package extract

import (
	"context"
	"io"
	"time"
)

// TextExtractor turns one document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, name string, r io.Reader) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int // pages read, at most the configured cap
	TotalPages int
	Method     string // "pdf-text" | "pdf-stream"
	Duration   time.Duration
	Warnings   []string
}
