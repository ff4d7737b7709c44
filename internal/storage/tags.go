package storage

import (
	"log/slog"
	"os"
	"strings"

	"github.com/starford/nodepad/internal/tags"
)

// sidecarPath returns the tag file that belongs to a page.
func sidecarPath(docAbs string) string {
	return docAbs[:len(docAbs)-len(DocExt)] + TagExt
}

// ReadTags returns the tags of a page. A missing or unreadable sidecar yields no tags.
func (f *FS) ReadTags(path string) ([]string, error) {
	abs, err := f.ResolveDocument(path)
	if err != nil {
		return nil, err
	}
	return f.readSidecar(abs), nil
}

// WriteTags cleans the tags and atomically replaces the sidecar of a page.
func (f *FS) WriteTags(path string, list []string) error {
	abs, err := f.ResolveDocument(path)
	if err != nil {
		return err
	}
	content := strings.Join(tags.Clean(list), ", ")
	if err := writeFileAtomic(sidecarPath(abs), []byte(content)); err != nil {
		return osError(err, "write tags "+path)
	}
	return nil
}

func (f *FS) readSidecar(docAbs string) []string {
	data, err := os.ReadFile(sidecarPath(docAbs))
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("storage: read tags", slog.String("path", f.rel(docAbs)), slog.String("error", err.Error()))
		}
		return []string{}
	}
	if list := tags.SplitCSV(string(data)); list != nil {
		return list
	}
	return []string{}
}

// moveSidecar carries the tag file along with a moved or renamed page.
// Failures are logged and never fail the page operation.
func (f *FS) moveSidecar(oldDoc, newDoc string) {
	from, to := sidecarPath(oldDoc), sidecarPath(newDoc)
	if from == to || !exists(from) {
		return
	}
	if exists(to) && !sameFile(from, to) {
		f.logger.Warn("storage: tag sidecar not moved, target exists", slog.String("path", f.rel(to)))
		return
	}
	if err := os.Rename(from, to); err != nil {
		f.logger.Warn("storage: move tag sidecar", slog.String("path", f.rel(from)), slog.String("error", err.Error()))
	}
}

func (f *FS) removeSidecar(docAbs string) {
	err := os.Remove(sidecarPath(docAbs))
	if err != nil && !os.IsNotExist(err) {
		f.logger.Warn("storage: remove tag sidecar", slog.String("path", f.rel(docAbs)), slog.String("error", err.Error()))
	}
}

func sameFile(a, b string) bool {
	ia, err := os.Lstat(a)
	if err != nil {
		return false
	}
	ib, err := os.Lstat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
