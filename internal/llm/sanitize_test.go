package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

func TestParseBRAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"R$ 1.234,56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1234.56", "1234.56"},
		{"1.234", "1234"},
		{"1.234.567,89", "1234567.89"},
		{"1,234.56", "1234.56"},
		{"(1.000,00)", "-1000"},
		{"-250,5", "-250.5"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got, err := ParseBRAmount(tc.in)
		if err != nil {
			t.Errorf("ParseBRAmount(%q): %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("ParseBRAmount(%q) = %s, want %s", tc.in, got.String(), tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "R$"} {
		if _, err := ParseBRAmount(bad); err == nil {
			t.Errorf("ParseBRAmount(%q): expected error", bad)
		}
	}
}

func TestNormalizePeriod(t *testing.T) {
	cases := map[string]string{
		"03/2024":       "03/2024",
		"3/2024":        "03/2024",
		"03-2024":       "03/2024",
		"2024-03":       "03/2024",
		"março/2024":    "03/2024",
		"Dezembro 2023": "12/2023",
		"jan de 2025":   "01/2025",
		"13/2024":       "13/2024",
		" 2024 ":        "2024",
	}
	for in, want := range cases {
		if got := NormalizePeriod(in); got != want {
			t.Errorf("NormalizePeriod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	// WHAT: Model output with Brazilian formatting is normalized to the schema.
	// WHY: Models often echo the document's own number and period spelling.
	raw := []byte("```json\n" + `{
		"razao_social": " Alfa Comercio LTDA ",
		"cnpj": "12.345.678/0001-90",
		"competencia": "3/2024",
		"entradas": "R$ 10.500,25",
		"saidas": 8200.1,
		"servicos": "",
		"icms": null,
		"observacao": "ignorar"
	}` + "\n```")

	out, dropped, err := NormalizeAndSanitizeJSON(raw, nil)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if len(dropped) == 0 {
		t.Error("expected dropped/renamed keys to be reported")
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["empresa"] != "Alfa Comercio LTDA" {
		t.Errorf("empresa = %v", m["empresa"])
	}
	if m["cnpj"] != "12345678000190" {
		t.Errorf("cnpj = %v", m["cnpj"])
	}
	if m["periodo"] != "03/2024" {
		t.Errorf("periodo = %v", m["periodo"])
	}
	if m["entradas"] != 10500.25 {
		t.Errorf("entradas = %v", m["entradas"])
	}
	if m["saidas"] != 8200.1 {
		t.Errorf("saidas = %v", m["saidas"])
	}
	for _, k := range []string{"servicos", "icms", "pis", "cofins"} {
		if v, ok := m[k]; !ok || v != nil {
			t.Errorf("%s = %v (present=%t), want null", k, v, ok)
		}
	}
	if _, ok := m["observacao"]; ok {
		t.Error("unknown key was kept")
	}
}

func TestNormalizeAndSanitizeJSON_NumericCNPJ(t *testing.T) {
	out, _, err := NormalizeAndSanitizeJSON([]byte(`{"cnpj": 1234567000190, "periodo": "01/2024"}`), nil)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(out, &m)
	if m["cnpj"] != "01234567000190" {
		t.Errorf("cnpj = %v, want zero-padded digits", m["cnpj"])
	}
}

func TestDecodeFields(t *testing.T) {
	data, _, err := DecodeFields([]byte(`{"empresa":"Beta SA","cnpj":"98.765.432/0001-10","periodo":"2024-11","icms":"1.000,00","regime_tributario":"Lucro Presumido"}`), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.CNPJ != "98765432000110" || data.Periodo != "11/2024" {
		t.Errorf("identifiers = %q %q", data.CNPJ, data.Periodo)
	}
	if !data.ICMS.Valid || data.ICMS.Decimal.String() != "1000" {
		t.Errorf("icms = %+v", data.ICMS)
	}
	if data.Entradas.Valid {
		t.Errorf("entradas should be null, got %s", data.Entradas.Decimal)
	}
	if data.RegimeTributario == nil || *data.RegimeTributario != "Lucro Presumido" {
		t.Errorf("regime = %v", data.RegimeTributario)
	}
}

func TestDecodeFields_InvalidOutput(t *testing.T) {
	// WHAT: Output missing required keys, or not JSON at all, is a validation failure.
	// WHY: The endpoint answers success:false instead of passing partial data on.
	for _, raw := range []string{`{"empresa":"Sem CNPJ"}`, `not json`, `null`} {
		_, _, err := DecodeFields([]byte(raw), nil)
		if !errors.Is(err, common.ErrValidation) {
			t.Errorf("DecodeFields(%s) error = %v, want ErrValidation", raw, err)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("ação fiscal", 3); got != "açã" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("got %q", got)
	}
}
