package extract

import (
	"bytes"
	"context"
	"fmt"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// readContentStreams is the fallback engine: pdfcpu validates the file and
// hands back each page's content stream, from which text operators are read.
func (e *PDFExtractor) readContentStreams(ctx context.Context, data []byte) (res TextExtractionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = TextExtractionResult{}
			err = fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return TextExtractionResult{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	res.Method = MethodPDFStream
	res.TotalPages = pctx.PageCount
	limit := min(res.TotalPages, e.cfg.MaxPages)

	var b strings.Builder
	for pageNr := 1; pageNr <= limit; pageNr++ {
		if err := ctx.Err(); err != nil {
			return TextExtractionResult{}, err
		}
		res.Pages++
		r, perr := pdfcpu.ExtractPageContent(pctx, pageNr)
		if perr != nil || r == nil {
			if perr != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", pageNr, perr))
			}
			b.WriteByte('\n')
			continue
		}
		raw, rerr := io.ReadAll(r)
		if rerr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", pageNr, rerr))
		}
		b.WriteString(textFromContentStream(raw))
		b.WriteByte('\n')
	}
	res.Text = b.String()
	return res, nil
}

// textFromContentStream pulls the operands of the text-showing operators
// (Tj, TJ, ' and ") out of a page content stream. Line-positioning operators
// become line breaks. Operators are found by tokenizing, so streams written
// on a single line read the same as one operator per line.
func textFromContentStream(data []byte) string {
	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	var operands []string
	var array *strings.Builder
	push := func(s string) {
		if array != nil {
			array.WriteString(s)
			return
		}
		operands = append(operands, s)
	}
	show := func() {
		for _, s := range operands {
			b.WriteString(s)
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, next := readLiteral(data, i)
			push(unescapeLiteral(raw))
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			end := bytes.IndexByte(data[i:], '>')
			if end < 0 {
				i = len(data)
				continue
			}
			push(decodeHexString(data[i+1 : i+end]))
			i += end + 1
		case c == '[':
			array = &strings.Builder{}
			i++
		case c == ']':
			if array != nil {
				operands = append(operands, array.String())
				array = nil
			}
			i++
		case c == '/':
			// names are operands; skip them without touching the stack
			i++
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
		case isPDFDelim(c):
			i++
		default:
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			tok := string(data[start:i])
			switch tok {
			case "Tj", "TJ":
				show()
			case "'", `"`:
				newline()
				show()
			case "Td", "TD", "T*", "ET":
				newline()
			default:
				if isNumber(tok) {
					continue
				}
			}
			operands = operands[:0]
		}
	}
	return strings.TrimSpace(b.String())
}

// readLiteral returns the bytes of the literal string opening at data[i]
// and the index after its closing parenthesis. Balanced inner parentheses
// are kept.
func readLiteral(data []byte, i int) ([]byte, int) {
	depth := 0
	start := i + 1
	for j := i; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return data[start:j], j + 1
			}
		}
	}
	return data[min(start, len(data)):], len(data)
}

func decodeHexString(raw []byte) string {
	var digits []byte
	for _, c := range raw {
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return ""
	}
	return string(out)
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// unescapeLiteral resolves the backslash escapes of a PDF literal string.
func unescapeLiteral(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := 0
			for n := 0; n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; n++ {
				val = val*8 + int(raw[i]-'0')
				i++
			}
			i--
			b.WriteByte(byte(val))
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
