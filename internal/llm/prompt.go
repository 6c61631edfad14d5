package llm

import (
	"strings"
	"unicode/utf8"
)

// MaxPromptChars bounds the document text embedded in a prompt.
const MaxPromptChars = 15000

// BuildSystemPrompt describes the fiscal record the model must return.
func BuildSystemPrompt() string {
	parts := []string{
		"Você é um assistente que extrai dados fiscais de documentos brasileiros (PGDAS-D, DAS, apurações de ICMS, livros de entradas e saídas).",
		"Responda APENAS com um objeto JSON, sem texto adicional, com as chaves:",
		"empresa (razão social), cnpj (14 dígitos, somente números), periodo (competência no formato MM/AAAA),",
		"entradas, saidas, servicos, icms, pis, cofins (valores em reais como números, ponto como separador decimal, null quando ausentes),",
		"regime_tributario (por exemplo \"Simples Nacional\", \"Lucro Presumido\", \"Lucro Real\", ou null).",
		"Use a competência do documento, não a data de emissão.",
		"Não invente valores: se um campo não aparecer no documento, use null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt embeds the filename and the (capped) document text.
func BuildUserPrompt(filename, text string) string {
	var b strings.Builder
	b.WriteString("Arquivo: ")
	b.WriteString(filename)
	b.WriteString("\n\nTexto extraído do PDF:\n")
	b.WriteString(TruncateRunes(text, MaxPromptChars))
	return b.String()
}

// TruncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
