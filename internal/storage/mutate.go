package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/markdown"
	"github.com/starford/nodepad/internal/models"
)

// Entity types reported by Create, Move and Rename. They match the node types
// of the tree; "directory" and "page" are accepted as input aliases.
const (
	TypeFile      = models.NodeFile
	TypeDirectory = models.NodeFolder
)

// MoveResult describes the outcome of a move or rename.
type MoveResult struct {
	Type    string `json:"type"`
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// EntityType maps a user supplied type onto TypeFile or TypeDirectory, "" if unsupported.
func EntityType(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case TypeFile, "page":
		return TypeFile
	case TypeDirectory, "directory":
		return TypeDirectory
	default:
		return ""
	}
}

// Create makes a new page seeded with a heading and an empty tag file,
// or a new folder. It returns the relative path of the new entity.
func (f *FS) Create(path, typ string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: path is required", apperr.ErrInvalidInput)
	}
	switch EntityType(typ) {
	case TypeFile:
		abs, err := f.ResolveDocument(path)
		if err != nil {
			return "", err
		}
		if exists(abs) {
			return "", fmt.Errorf("%w: %s already exists", apperr.ErrConflict, f.rel(abs))
		}
		if err := writeFileAtomic(abs, []byte(markdown.Seed(stem(abs)))); err != nil {
			return "", osError(err, "create "+path)
		}
		if err := writeFileAtomic(sidecarPath(abs), nil); err != nil {
			f.logger.Warn("storage: create tag sidecar", slog.String("path", f.rel(abs)), slog.String("error", err.Error()))
		}
		return f.rel(abs), nil
	case TypeDirectory:
		abs, err := f.Resolve(path)
		if err != nil {
			return "", err
		}
		if abs == f.root || exists(abs) {
			return "", fmt.Errorf("%w: %s already exists", apperr.ErrConflict, f.rel(abs))
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", osError(err, "create "+path)
		}
		return f.rel(abs), nil
	default:
		return "", fmt.Errorf("%w: unsupported type %q", apperr.ErrInvalidInput, typ)
	}
}

// Delete removes a page (with its tag file) or a folder. A non-empty folder is
// only removed when recursive is set; otherwise ErrNeedsConfirmation is returned.
func (f *FS) Delete(path string, recursive bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path is required", apperr.ErrInvalidInput)
	}
	abs, err := f.Resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("%w: cannot delete the pages root", apperr.ErrForbidden)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return osError(err, "delete "+path)
	}

	if !info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return osError(err, "delete "+path)
		}
		if isDocument(abs) {
			f.removeSidecar(abs)
		}
		return nil
	}

	empty, err := isEmptyDir(abs)
	if err != nil {
		return osError(err, "delete "+path)
	}
	if empty {
		if err := os.Remove(abs); err != nil {
			return osError(err, "delete "+path)
		}
		return nil
	}
	if !recursive {
		return fmt.Errorf("%w: folder %s is not empty", apperr.ErrNeedsConfirmation, f.rel(abs))
	}
	if err := os.RemoveAll(abs); err != nil {
		return osError(err, "delete "+path)
	}
	return nil
}

// Move relocates a page or folder into an existing destination folder ("" for the root).
func (f *FS) Move(src, destDir string) (*MoveResult, error) {
	srcAbs, info, err := f.resolveSource(src)
	if err != nil {
		return nil, err
	}
	destAbs, err := f.Resolve(destDir)
	if err != nil {
		return nil, err
	}
	if dinfo, err := os.Stat(destAbs); err != nil || !dinfo.IsDir() {
		return nil, fmt.Errorf("%w: destination folder %s does not exist", apperr.ErrNotFound, destDir)
	}

	typ := TypeDirectory
	if !info.IsDir() {
		typ = TypeFile
		if !isDocument(srcAbs) {
			return nil, fmt.Errorf("%w: only %s pages can be moved", apperr.ErrInvalidInput, DocExt)
		}
	} else if samePath(destAbs, srcAbs) || isWithin(destAbs, srcAbs) {
		return nil, fmt.Errorf("%w: cannot move a folder into itself", apperr.ErrInvalidInput)
	}

	target, err := f.checkContained(filepath.Join(destAbs, filepath.Base(srcAbs)))
	if err != nil {
		return nil, err
	}
	if samePath(target, srcAbs) {
		return nil, fmt.Errorf("%w: %s is already in that folder", apperr.ErrConflict, f.rel(srcAbs))
	}
	if exists(target) {
		return nil, fmt.Errorf("%w: %s already exists", apperr.ErrConflict, f.rel(target))
	}
	if err := os.Rename(srcAbs, target); err != nil {
		return nil, osError(err, "move "+src)
	}
	if typ == TypeFile {
		f.moveSidecar(srcAbs, target)
	}
	return &MoveResult{Type: typ, OldPath: f.rel(srcAbs), NewPath: f.rel(target)}, nil
}

// Rename gives a page or folder a new name within its parent. Only the last
// segment of newName is used and pages keep the DocExt suffix.
func (f *FS) Rename(path, newName string) (*MoveResult, error) {
	srcAbs, info, err := f.resolveSource(path)
	if err != nil {
		return nil, err
	}
	name := lastSegment(newName)
	if name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: new name is required", apperr.ErrInvalidInput)
	}

	typ := TypeDirectory
	if !info.IsDir() {
		typ = TypeFile
		if !isDocument(srcAbs) {
			return nil, fmt.Errorf("%w: only %s pages can be renamed", apperr.ErrInvalidInput, DocExt)
		}
		if !hasDocExt(name) {
			name += DocExt
		}
	}

	target, err := f.checkContained(filepath.Join(filepath.Dir(srcAbs), name))
	if err != nil {
		return nil, err
	}
	if target == srcAbs {
		return &MoveResult{Type: typ, OldPath: f.rel(srcAbs), NewPath: f.rel(srcAbs)}, nil
	}
	// A case-only rename on a case-insensitive volume reports the source as the target.
	if existing, err := os.Lstat(target); err == nil && !os.SameFile(info, existing) {
		return nil, fmt.Errorf("%w: %s already exists", apperr.ErrConflict, f.rel(target))
	}
	if err := os.Rename(srcAbs, target); err != nil {
		return nil, osError(err, "rename "+path)
	}
	if typ == TypeFile {
		f.moveSidecar(srcAbs, target)
	}
	return &MoveResult{Type: typ, OldPath: f.rel(srcAbs), NewPath: f.rel(target)}, nil
}

func (f *FS) resolveSource(path string) (string, os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil, fmt.Errorf("%w: path is required", apperr.ErrInvalidInput)
	}
	abs, err := f.Resolve(path)
	if err != nil {
		return "", nil, err
	}
	if abs == f.root {
		return "", nil, fmt.Errorf("%w: the pages root cannot be moved or renamed", apperr.ErrForbidden)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return "", nil, osError(err, "stat "+path)
	}
	return abs, info, nil
}

func lastSegment(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

func isEmptyDir(abs string) (bool, error) {
	d, err := os.Open(abs)
	if err != nil {
		return false, err
	}
	defer d.Close()
	_, err = d.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}
