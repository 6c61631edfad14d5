package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// CollectDirectory walks root and returns every PDF under it sorted by path.
// Hidden files and directories are skipped when skipHidden is set. Entries
// that cannot be read are counted as failures and the walk continues.
func CollectDirectory(root string, skipHidden bool, logger *slog.Logger) ([]File, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, common.WrapError(err, "walk")
	}

	sort.Strings(paths)
	files, err := FromPaths(paths)
	if err != nil {
		return nil, stats, err
	}
	logger.Info("ingest.walk.done", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	return files, stats, nil
}

// FromPaths stats every path, keeping the given order.
func FromPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := NewPathFile(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// FromUploads wraps multipart file headers in submission order.
func FromUploads(headers []*multipart.FileHeader) []File {
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		files = append(files, NewUploadFile(h))
	}
	return files
}
