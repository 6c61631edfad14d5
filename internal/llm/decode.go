package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

var strictFiscalSchema = MustCompileSchema("fiscal_strict.json", BuildFiscalJSONSchema(true))

// DecodeFields turns raw model output into a fiscal record: sanitize, then
// validate against the strict schema, then unmarshal. Output the model got
// wrong is reported as VALIDATION_FAILED together with the sanitized JSON.
func DecodeFields(content []byte, logger *slog.Logger) (entity.ExtractedFiscalData, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleaned, _, err := NormalizeAndSanitizeJSON(content, logger)
	if err != nil {
		return entity.ExtractedFiscalData{}, content, common.NewValidationError("Resposta da IA não é um JSON válido", err)
	}
	if err := strictFiscalSchema.Validate(cleaned); err != nil {
		logger.Error("llm.extract.schema_validation_failed", "error", err, "content", string(cleaned))
		return entity.ExtractedFiscalData{}, cleaned, common.NewValidationError("Resposta da IA fora do formato esperado", err)
	}
	var out entity.ExtractedFiscalData
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return entity.ExtractedFiscalData{}, cleaned, common.NewValidationError("Resposta da IA fora do formato esperado", fmt.Errorf("unmarshal fields: %w", err))
	}
	return out, cleaned, nil
}
