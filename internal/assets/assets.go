// Package assets stores uploaded images inside the pages directory and maps
// them to the URLs under which they are served.
package assets

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/storage"
)

const (
	// DefaultMaxBytes caps image uploads when no limit is configured.
	DefaultMaxBytes int64 = 10 << 20
	// Dir is the fallback image folder for uploads not tied to a page.
	Dir = "uploads/images"
	// URLPrefix is the URL prefix under which page folders are served.
	URLPrefix = "/pages/"
	// SniffLen is how much of an image CheckContent needs to see.
	SniffLen = 1024
)

var (
	imageTypes = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}
	imageExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
	}
)

// AllowedType reports whether a Content-Type header names a supported image.
func AllowedType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := imageTypes[strings.ToLower(mt)]
	return ok
}

// ExtForType returns the canonical extension of a supported image type, or "".
func ExtForType(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	return imageTypes[strings.ToLower(mt)]
}

// AllowedExt reports whether a file name has a supported image extension.
func AllowedExt(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}

// CheckContent verifies that data, the start of an image, looks like the
// image its extension ext claims.
func CheckContent(data []byte, ext string) error {
	ext = strings.ToLower(ext)
	if ext == ".svg" {
		head := data
		if len(head) > SniffLen {
			head = head[:SniffLen]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("%w: content does not appear to be a valid SVG (missing <svg tag)", apperr.ErrInvalidInput)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if ExtForType(detected) != ext {
		return fmt.Errorf("%w: content does not match extension %s (detected: %s)", apperr.ErrInvalidInput, ext, detected)
	}
	return nil
}

// Name sanitizes an uploaded file name and lowercases its extension.
func Name(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(name)
	base := storage.SanitizeName(strings.TrimSuffix(name, ext))
	if base == "" || base == "." || base == ".." {
		base = "image"
	}
	return base + strings.ToLower(ext)
}

// Store places images next to pages.
type Store struct {
	pages storage.Provider
}

// NewStore creates an image store over the pages directory.
func NewStore(pages storage.Provider) *Store {
	return &Store{pages: pages}
}

// targetDir picks where an image lands: next to the page when pagePath
// names a page, otherwise the shared uploads folder.
func (s *Store) targetDir(pagePath string) (string, error) {
	if strings.TrimSpace(pagePath) != "" {
		if abs, err := s.pages.ResolveDocument(pagePath); err == nil {
			return filepath.Dir(abs), nil
		}
	}
	return s.pages.Resolve(Dir)
}

// Save writes an image named name (already sanitized by Name) and returns
// its URL. An existing file with the same name is overwritten.
func (s *Store) Save(pagePath, name string, r io.Reader) (string, int64, error) {
	if !AllowedExt(name) {
		return "", 0, fmt.Errorf("%w: unsupported image type %q", apperr.ErrInvalidInput, path.Ext(name))
	}
	dir, err := s.targetDir(pagePath)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("assets: create dir: %w", err)
	}
	abs := filepath.Join(dir, name)
	dst, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("assets: create image: %w", err)
	}
	written, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return "", 0, fmt.Errorf("assets: write image: %w", err)
	}
	u, err := s.URL(abs)
	if err != nil {
		return "", 0, err
	}
	return u, written, nil
}

// URL maps an absolute path inside the pages root to its served URL.
func (s *Store) URL(abs string) (string, error) {
	rel, err := filepath.Rel(s.pages.Root(), abs)
	if err != nil {
		return "", fmt.Errorf("assets: %w", err)
	}
	segs := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return URLPrefix + strings.Join(segs, "/"), nil
}

// Open resolves a served image path to a regular file inside the pages root.
// Anything that is not an image is reported as not found.
func (s *Store) Open(rel string) (string, error) {
	if !AllowedExt(rel) {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}
	abs, err := s.pages.Resolve(rel)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}
	return abs, nil
}
