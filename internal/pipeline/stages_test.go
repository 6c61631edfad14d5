package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
)

func TestParseStage_LogsExtractionWarnings(t *testing.T) {
	// WHAT: warnings from a degraded text extraction reach the parse log.
	// WHY: a partial read (a broken page, a fallback reader) is otherwise
	// invisible when the document still yields text.
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	tx := &fakeText{text: "CNPJ 12.345.678/0001-90", warnings: []string{"page 2: malformed content stream"}}
	stage := NewParseStage(tx, logger)

	text, err := stage.Run(context.Background(), &ingest.MemoryFile{FileName: "a.pdf", Data: []byte("%PDF")}, 1)
	if err != nil || text == "" {
		t.Fatalf("run: text=%q err=%v", text, err)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry struct {
			Msg      string   `json:"msg"`
			Warnings []string `json:"warnings"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry.Msg != "pipeline.parse.ok" {
			continue
		}
		found = true
		if len(entry.Warnings) != 1 || entry.Warnings[0] != "page 2: malformed content stream" {
			t.Errorf("warnings = %v", entry.Warnings)
		}
	}
	if !found {
		t.Errorf("no pipeline.parse.ok entry in %s", buf.String())
	}
}
