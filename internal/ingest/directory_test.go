package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCollectDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "bbb")
	writeFile(t, filepath.Join(root, "a.PDF"), "a")
	writeFile(t, filepath.Join(root, "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "skip")
	writeFile(t, filepath.Join(root, ".cache", "c.pdf"), "skip")
	writeFile(t, filepath.Join(root, "sub", "d.pdf"), "dd")

	files, stats, err := CollectDirectory(root, true, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	want := []string{"a.PDF", "b.pdf", "d.pdf"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if stats.Matched != 3 {
		t.Errorf("matched = %d", stats.Matched)
	}
	if files[1].Size() != 3 {
		t.Errorf("size = %d", files[1].Size())
	}

	rc, err := files[2].Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "dd" {
		t.Errorf("body = %q", body)
	}
}

func TestCollectDirectory_IncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "x")
	files, _, err := CollectDirectory(root, false, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("files = %d, want 1", len(files))
	}
}

func TestCollectDirectory_EmptyRoot(t *testing.T) {
	if _, _, err := CollectDirectory("  ", true, nil); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestMemoryFile(t *testing.T) {
	f := &MemoryFile{FileName: "x.pdf", Data: []byte("12345")}
	if f.Size() != 5 || f.Name() != "x.pdf" {
		t.Errorf("file = %s %d", f.Name(), f.Size())
	}
}

func TestIsPDF(t *testing.T) {
	cases := []struct {
		name, contentType string
		want              bool
	}{
		{"a.pdf", "", true},
		{"A.PDF", "application/pdf", true},
		{"a.pdf", "application/pdf; charset=binary", true},
		{"a.pdf", "application/octet-stream", true},
		{"a.pdf", "text/plain", false},
		{"a.pdf", "not a media type;;", false},
		{"notes.txt", "application/pdf", false},
		{"pdf", "", false},
	}
	for _, tc := range cases {
		if got := IsPDF(tc.name, tc.contentType); got != tc.want {
			t.Errorf("IsPDF(%q, %q) = %v, want %v", tc.name, tc.contentType, got, tc.want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType(&MemoryFile{FileName: "a.pdf"}); got != "" {
		t.Errorf("memory file content type = %q", got)
	}
}
