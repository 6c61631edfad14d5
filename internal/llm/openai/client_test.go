package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(common.LLMConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "test-model"}, nil)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(common.LLMConfig{APIKey: "k", Temperature: 0.2}, nil)
	if c.endpoint != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
	if c.model != defaultModel || c.temperature != 0.2 {
		t.Errorf("model = %q temperature = %v", c.model, c.temperature)
	}
	if c.http.Timeout != defaultTimeout {
		t.Errorf("timeout = %v", c.http.Timeout)
	}
}

func TestExtractFields_OK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "test-model" {
			t.Errorf("model = %v", body["model"])
		}
		content := `{"empresa":"Gama ME","cnpj":"11.222.333/0001-81","periodo":"05/2024","entradas":"2.000,00","saidas":1500}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	})

	got, raw, err := c.ExtractFields(context.Background(), llm.ExtractRequest{Filename: "gama.pdf", Text: "texto"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected sanitized JSON to be returned")
	}
	if got.CNPJ != "11222333000181" || got.Periodo != "05/2024" {
		t.Errorf("identifiers = %q %q", got.CNPJ, got.Periodo)
	}
	if got.Entradas.Decimal.String() != "2000" || got.Saidas.Decimal.String() != "1500" {
		t.Errorf("amounts = %s %s", got.Entradas.Decimal, got.Saidas.Decimal)
	}
}

func TestExtractFields_UpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","code":"rate_limit_exceeded"}}`, common.ErrRateLimited},
		{"insufficient quota", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","code":"insufficient_quota"}}`, common.ErrQuotaExhausted},
		{"payment required", http.StatusPaymentRequired, `{}`, common.ErrQuotaExhausted},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, common.ErrExtractionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, _, err := c.ExtractFields(context.Background(), llm.ExtractRequest{Filename: "x.pdf", Text: "t"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestExtractFields_InvalidModelOutput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": `{"empresa":"sem dados"}`}}},
		})
	})
	_, _, err := c.ExtractFields(context.Background(), llm.ExtractRequest{Filename: "x.pdf", Text: "t"})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
