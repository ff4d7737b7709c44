package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/models"
)

// Tree builds the node tree below a folder ("" for the root).
// Pages come first, then folders, each group in directory listing order.
func (f *FS) Tree(dir string) ([]models.Node, error) {
	abs, err := f.Resolve(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, osError(err, "stat "+dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a folder", apperr.ErrNotFound, dir)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, osError(err, "list "+dir)
	}
	return f.build(abs, entries), nil
}

func (f *FS) build(dir string, entries []os.DirEntry) []models.Node {
	files := []models.Node{}
	var folders []models.Node
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if f.skipDir(full, e.Name()) {
				continue
			}
			children := []models.Node{}
			sub, err := os.ReadDir(full)
			if err != nil {
				f.logger.Warn("storage: list folder", slog.String("path", f.rel(full)), slog.String("error", err.Error()))
			} else {
				children = f.build(full, sub)
			}
			folders = append(folders, models.Node{
				Name:     e.Name(),
				Path:     f.rel(full),
				Type:     models.NodeFolder,
				Children: children,
			})
		case e.Type().IsRegular() && isDocument(e.Name()):
			files = append(files, models.Node{
				Name: e.Name(),
				Path: f.rel(full),
				Type: models.NodeFile,
			})
		}
	}
	return append(files, folders...)
}

// skipDir reports whether a folder is hidden from trees and listings:
// dot-prefixed names, or folders carrying a hidden/system attribute.
// When the attribute cannot be read the folder is kept.
func (f *FS) skipDir(abs, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	hidden, err := hasHiddenAttr(abs)
	if err != nil {
		return false
	}
	return hidden
}
