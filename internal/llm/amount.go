package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleanRe = regexp.MustCompile(`[^\d.,\-]`)

// ParseBRAmount parses monetary text as written in Brazilian documents:
// "R$ 1.234,56", "1234,56", "(1.234,56)" and plain "1234.56" all work.
// The separator appearing last is the decimal one; a lone "." followed by
// exactly three digits is a thousands separator.
func ParseBRAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	negative := strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")")
	clean := amountCleanRe.ReplaceAllString(raw, "")
	if strings.HasPrefix(clean, "-") {
		negative = true
	}
	clean = strings.ReplaceAll(clean, "-", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", s)
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	switch {
	case lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case lastDot > lastComma:
		clean = strings.ReplaceAll(clean, ",", "")
		if strings.Count(clean, ".") > 1 || (lastComma < 0 && len(clean)-lastDot-1 == 3) {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}
	if strings.Count(clean, ",") > 0 || strings.Count(clean, ".") > 1 {
		return decimal.Zero, fmt.Errorf("ambiguous amount %q", s)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

var monthNames = map[string]int{
	"jan": 1, "janeiro": 1,
	"fev": 2, "fevereiro": 2,
	"mar": 3, "marco": 3, "março": 3,
	"abr": 4, "abril": 4,
	"mai": 5, "maio": 5,
	"jun": 6, "junho": 6,
	"jul": 7, "julho": 7,
	"ago": 8, "agosto": 8,
	"set": 9, "setembro": 9,
	"out": 10, "outubro": 10,
	"nov": 11, "novembro": 11,
	"dez": 12, "dezembro": 12,
}

var (
	periodMonthYearRe = regexp.MustCompile(`^(\d{1,2})\s*[/\-.]\s*(\d{4})$`)
	periodYearMonthRe = regexp.MustCompile(`^(\d{4})\s*[/\-.]\s*(\d{1,2})$`)
	periodNamedRe     = regexp.MustCompile(`^([a-zçA-ZÇ]+)\s*(?:/|-|de)?\s*(\d{4})$`)
)

// NormalizePeriod rewrites common competence spellings ("3/2024",
// "2024-03", "março/2024") to MM/YYYY. Unknown forms are returned trimmed
// and unchanged so validation can reject them.
func NormalizePeriod(s string) string {
	p := strings.TrimSpace(s)
	if m := periodMonthYearRe.FindStringSubmatch(p); m != nil {
		return formatPeriod(m[1], m[2], p)
	}
	if m := periodYearMonthRe.FindStringSubmatch(p); m != nil {
		return formatPeriod(m[2], m[1], p)
	}
	if m := periodNamedRe.FindStringSubmatch(p); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return fmt.Sprintf("%02d/%s", month, m[2])
		}
	}
	return p
}

func formatPeriod(month, year, fallback string) string {
	n, err := strconv.Atoi(month)
	if err != nil || n < 1 || n > 12 {
		return fallback
	}
	return fmt.Sprintf("%02d/%s", n, year)
}
