package llm

// BuildFiscalJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// strict forbids unknown keys and requires cnpj and periodo; it is used on
// sanitized model output. The lenient form only checks types and is applied to
// responses of the extraction endpoint, whose caller reports missing fields
// with field-specific messages.
func BuildFiscalJSONSchema(strict bool) map[string]any {
	props := map[string]any{
		"empresa":           map[string]any{"type": []string{"string", "null"}},
		"cnpj":              map[string]any{"type": "string"},
		"periodo":           map[string]any{"type": "string"},
		"entradas":          moneyProp(),
		"saidas":            moneyProp(),
		"servicos":          moneyProp(),
		"icms":              moneyProp(),
		"pis":               moneyProp(),
		"cofins":            moneyProp(),
		"regime_tributario": map[string]any{"type": []string{"string", "null"}},
	}
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": !strict,
		"properties":           props,
	}
	if strict {
		schema["required"] = []string{"cnpj", "periodo"}
	}
	return schema
}

func moneyProp() map[string]any {
	return map[string]any{"type": []string{"number", "null"}}
}
