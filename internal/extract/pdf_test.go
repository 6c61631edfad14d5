package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

func TestPDFExtractor_PagesInOrder(t *testing.T) {
	// WHAT: Text of every page is returned, first page first.
	// WHY: Field extraction relies on the document reading top to bottom.
	raw := buildTextPDF([]string{
		"EMPRESA ALFA LTDA CNPJ 12.345.678/0001-90",
		"Competencia 03/2024 Total de entradas 1500,00",
	})

	res, err := NewPDFExtractor(Config{}, nil).ExtractText(context.Background(), "alfa.pdf", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Pages != 2 || res.TotalPages != 2 {
		t.Fatalf("pages = %d/%d, want 2/2", res.Pages, res.TotalPages)
	}
	first := strings.Index(res.Text, "EMPRESA ALFA")
	second := strings.Index(res.Text, "Competencia 03/2024")
	if first < 0 || second < 0 {
		t.Fatalf("missing page text: %q", res.Text)
	}
	if first > second {
		t.Errorf("page order not preserved: %q", res.Text)
	}
}

func TestPDFExtractor_PageCap(t *testing.T) {
	// WHAT: Only the first MaxPages pages are read.
	// WHY: Large documents must not inflate the payload sent for extraction.
	pages := make([]string, 55)
	for i := range pages {
		pages[i] = "Pagina " + strconv.Itoa(i+1)
	}
	raw := buildTextPDF(pages)

	res, err := NewPDFExtractor(Config{MaxPages: 50}, nil).ExtractText(context.Background(), "long.pdf", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Pages != 50 {
		t.Errorf("pages read = %d, want 50", res.Pages)
	}
	if res.TotalPages != 55 {
		t.Errorf("total pages = %d, want 55", res.TotalPages)
	}
	if strings.Contains(res.Text, "Pagina 51") {
		t.Errorf("text past the cap was extracted")
	}
}

func TestPDFExtractor_CorruptDocument(t *testing.T) {
	// WHAT: Bytes that are not a PDF fail with a parse error.
	// WHY: The state machine reports unreadable files as terminal failures.
	_, err := NewPDFExtractor(Config{}, nil).ExtractText(context.Background(), "broken.pdf", strings.NewReader("definitely not a pdf"))
	if err == nil {
		t.Fatal("expected error for corrupt document")
	}
	if !errors.Is(err, common.ErrParse) {
		t.Errorf("error kind = %v, want ErrParse", err)
	}
	if got := common.UserMessage(err); got == "" {
		t.Error("expected a user message")
	}
}

func TestPDFExtractor_BlankDocument(t *testing.T) {
	// WHAT: A valid PDF without text returns blank text and no error.
	// WHY: Blank text is judged by the caller, not by the extractor.
	raw := buildTextPDF([]string{""})

	res, err := NewPDFExtractor(Config{}, nil).ExtractText(context.Background(), "blank.pdf", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.TrimSpace(res.Text) != "" {
		t.Errorf("text = %q, want blank", res.Text)
	}
}

func TestPDFExtractor_MaxBytes(t *testing.T) {
	raw := buildTextPDF([]string{"tiny"})
	_, err := NewPDFExtractor(Config{MaxBytes: 16}, nil).ExtractText(context.Background(), "big.pdf", bytes.NewReader(raw))
	if !errors.Is(err, common.ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
}

func TestTextFromContentStream(t *testing.T) {
	cases := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "one operator per line",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(CNPJ: 12.345.678/0001-90) Tj\n0 -14 Td\n[(Per) -20 (iodo 01/2024)] TJ\n(Saidas \\(R$\\)) '\nET",
			want:   "CNPJ: 12.345.678/0001-90\nPeriodo 01/2024\nSaidas (R$)",
		},
		{
			name:   "single line",
			stream: "BT /F1 12 Tf 72 712 Td (CNPJ 12.345.678/0001-90) Tj ET",
			want:   "CNPJ 12.345.678/0001-90",
		},
		{
			name:   "single line with several operators",
			stream: "BT /F1 12 Tf 72 712 Td (Empresa Alfa) Tj 0 -14 Td [(Per) 120 (iodo 03/2024)] TJ T* (Total) Tj ET",
			want:   "Empresa Alfa\nPeriodo 03/2024\nTotal",
		},
		{
			name:   "hex string and nested parentheses",
			stream: "BT <4943 4D53> Tj T* (Saidas (R$)) Tj ET",
			want:   "ICMS\nSaidas (R$)",
		},
		{
			name:   "non text operators are ignored",
			stream: "q 1 0 0 1 0 0 cm /Im1 Do Q BT /F1 9 Tf (ok) Tj ET % comment (ignored) Tj",
			want:   "ok",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textFromContentStream([]byte(tc.stream)); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUnescapeLiteral(t *testing.T) {
	cases := map[string]string{
		`plain`:         "plain",
		`a\(b\)`:        "a(b)",
		`tab\there`:     "tab\there",
		`octal\101\102`: "octalAB",
		`back\\slash`:   `back\slash`,
	}
	for in, want := range cases {
		if got := unescapeLiteral([]byte(in)); got != want {
			t.Errorf("unescapeLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- PDF test helpers ---

// buildTextPDF writes a minimal multi-page PDF with a correct xref table,
// one Helvetica text line per page.
func buildTextPDF(pages []string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 page tree, 3 font, then (page, content) pairs.
	n := len(pages)
	total := 3 + 2*n
	offsets := make([]int, total+1)

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n)

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")

	for i, text := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1

		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", pageObj, contentObj)

		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
		stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"
		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, len(stream), stream)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", total+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)
	return b.Bytes()
}
