// Package ingest turns filesystem paths, directories and HTTP uploads into
// batch input files.
package ingest

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is one document submitted for import.
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// PathFile is a document on the local filesystem.
type PathFile struct {
	Path string
	size int64
}

// NewPathFile stats path and returns it as a batch file.
func NewPathFile(path string) (*PathFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	return &PathFile{Path: abs, size: st.Size()}, nil
}

func (f *PathFile) Name() string { return filepath.Base(f.Path) }
func (f *PathFile) Size() int64  { return f.size }

func (f *PathFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// UploadFile is a document received as a multipart form part.
type UploadFile struct {
	header *multipart.FileHeader
}

func NewUploadFile(h *multipart.FileHeader) *UploadFile {
	return &UploadFile{header: h}
}

func (f *UploadFile) Name() string { return filepath.Base(f.header.Filename) }
func (f *UploadFile) Size() int64  { return f.header.Size }

func (f *UploadFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// ContentType is the media type the client declared for the part.
func (f *UploadFile) ContentType() string {
	return f.header.Header.Get("Content-Type")
}

// MemoryFile is a document already held in memory.
type MemoryFile struct {
	FileName string
	Data     []byte
}

func (f *MemoryFile) Name() string { return f.FileName }
func (f *MemoryFile) Size() int64  { return int64(len(f.Data)) }

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
