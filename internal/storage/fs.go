package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/models"
)

// Extensions of managed pages and their tag sidecars.
const (
	DocExt = ".md"
	TagExt = ".tags"
)

const tmpPattern = ".nodepad-tmp-*"

// FS implements Provider backed by the local file system.
// It holds no state besides the canonical root, so it is safe for concurrent use.
type FS struct {
	root   string // canonical absolute path to the pages directory
	logger *slog.Logger
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist. A nil logger uses slog.Default.
func NewFS(root string, logger *slog.Logger) (*FS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: eval root symlinks: %w", err)
	}
	return &FS{root: filepath.Clean(real), logger: logger}, nil
}

// Root returns the canonical absolute pages directory.
func (f *FS) Root() string { return f.root }

// ReadPage returns the raw content of a page.
func (f *FS) ReadPage(path string) ([]byte, error) {
	abs, err := f.ResolveDocument(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, osError(err, "read "+path)
	}
	return data, nil
}

// SavePage atomically replaces the content of a page, creating parent folders as needed.
func (f *FS) SavePage(path string, content []byte) error {
	abs, err := f.ResolveDocument(path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a folder", apperr.ErrConflict, path)
	}
	if err := writeFileAtomic(abs, content); err != nil {
		return osError(err, "write "+path)
	}
	return nil
}

// Stat returns page metadata.
func (f *FS) Stat(path string) (*models.PageInfo, error) {
	abs, err := f.ResolveDocument(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, osError(err, "stat "+path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a folder", apperr.ErrNotFound, path)
	}
	return f.pageInfo(abs, info), nil
}

// Documents walks the whole tree and returns every page outside hidden folders.
// Unreadable sub-folders are skipped.
func (f *FS) Documents() ([]models.PageInfo, error) {
	var out []models.PageInfo
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == f.root {
				return walkErr
			}
			f.logger.Warn("storage: walk skipped entry", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != f.root && f.skipDir(p, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isDocument(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, *f.pageInfo(p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	return out, nil
}

// Breadcrumbs returns the ancestor folders of path followed by the final segment.
// A final document segment is named by its stem.
func (f *FS) Breadcrumbs(path string) ([]models.Breadcrumb, error) {
	abs, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	rel := f.rel(abs)
	out := []models.Breadcrumb{}
	if rel == "" {
		return out, nil
	}
	segments := strings.Split(rel, "/")
	for i, seg := range segments {
		name := seg
		if i == len(segments)-1 && isDocument(seg) {
			name = stem(seg)
		}
		out = append(out, models.Breadcrumb{
			Name: name,
			Path: strings.Join(segments[:i+1], "/"),
		})
	}
	return out, nil
}

func (f *FS) pageInfo(abs string, info fs.FileInfo) *models.PageInfo {
	return &models.PageInfo{
		Path:      f.rel(abs),
		Name:      stem(info.Name()),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}
}

// writeFileAtomic writes content: tmp file → fsync → rename.
func writeFileAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return err
	}
	success = true
	return nil
}

// osError maps file system errors onto the apperr kinds.
func osError(err error, op string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, op)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", apperr.ErrForbidden, op)
	default:
		return fmt.Errorf("storage: %s: %w", op, err)
	}
}

func exists(abs string) bool {
	_, err := os.Lstat(abs)
	return err == nil
}

func isDocument(name string) bool {
	return hasDocExt(name)
}

func hasDocExt(name string) bool {
	return len(name) >= len(DocExt) && strings.EqualFold(name[len(name)-len(DocExt):], DocExt)
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
