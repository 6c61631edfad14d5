package llm

import (
	"context"

	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

// ExtractRequest is one document handed to a provider.
type ExtractRequest struct {
	Filename string
	Text     string
}

// FieldExtractor turns document text into fiscal fields. Implementations
// return common AppErrors so callers can map rate limiting and quota
// exhaustion onto the extraction endpoint's status codes.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (entity.ExtractedFiscalData, []byte /*rawJSON*/, error)
}
