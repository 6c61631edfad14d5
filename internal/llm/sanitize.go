package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

var moneyFields = []string{"entradas", "saidas", "servicos", "icms", "pis", "cofins"}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (razao_social -> empresa, competencia -> periodo)
// - Coerces money strings ("1.234,56") into JSON numbers; empty -> null
// - Strips the CNPJ to digits and rewrites the period as MM/YYYY
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(string(raw))))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: expected a JSON object")
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the schema
	renamed("razao_social", "empresa")
	renamed("nome_empresa", "empresa")
	renamed("competencia", "periodo")
	renamed("period", "periodo")
	renamed("entrada", "entradas")
	renamed("saida", "saidas")
	renamed("servico", "servicos")
	renamed("regime", "regime_tributario")

	// 2) money fields become numbers or null
	for _, k := range moneyFields {
		v, ok := m[k]
		if !ok {
			m[k] = nil
			continue
		}
		switch t := v.(type) {
		case nil, json.Number:
		case string:
			if strings.TrimSpace(t) == "" {
				m[k] = nil
				continue
			}
			d, err := ParseBRAmount(t)
			if err != nil {
				m[k] = nil
				dropped = append(dropped, k+"(unparsable)")
				continue
			}
			m[k] = json.Number(d.String())
		default:
			m[k] = nil
			dropped = append(dropped, k+"(type)")
		}
	}

	// 3) identifiers
	switch v := m["cnpj"].(type) {
	case string:
		m["cnpj"] = common.NormalizeCNPJ(v)
	case json.Number:
		// numeric CNPJs lose their leading zeros
		digits := common.NormalizeCNPJ(v.String())
		if len(digits) < 14 {
			digits = strings.Repeat("0", 14-len(digits)) + digits
		}
		m["cnpj"] = digits
	}
	if v, ok := m["periodo"].(string); ok {
		m["periodo"] = NormalizePeriod(v)
	}

	// 4) remove unknown keys (everything not in the schema set below)
	allowed := map[string]struct{}{
		"empresa": {}, "cnpj": {}, "periodo": {}, "regime_tributario": {},
		"entradas": {}, "saidas": {}, "servicos": {}, "icms": {}, "pis": {}, "cofins": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 5) trim obvious strings
	for _, k := range []string{"empresa", "regime_tributario"} {
		switch v := m[k].(type) {
		case string:
			s := strings.TrimSpace(v)
			if s == "" && k == "regime_tributario" {
				m[k] = nil
			} else {
				m[k] = s
			}
		case nil:
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
