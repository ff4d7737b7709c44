package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/starford/nodepad/internal/apperr"
)

// sanitize removes every ".." sequence and turns backslashes into forward slashes.
// The removal is textual, not segment aware: "a..b" becomes "ab".
func sanitize(userPath string) string {
	p := strings.ReplaceAll(userPath, "..", "")
	return strings.ReplaceAll(p, `\`, "/")
}

// Resolve maps a user supplied relative path onto a canonical absolute path inside
// the root. An empty path resolves to the root itself.
func (f *FS) Resolve(userPath string) (string, error) {
	cleaned := sanitize(userPath)
	native := filepath.FromSlash(cleaned)

	// Rooted paths never join below the root. This also catches "../x"
	// once the dots are stripped.
	if strings.HasPrefix(cleaned, "/") || filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("%w: path escapes pages root: %s", apperr.ErrForbidden, userPath)
	}

	abs, err := canonical(filepath.Join(f.root, native))
	if err != nil {
		return "", fmt.Errorf("storage: resolve %q: %w", userPath, err)
	}
	if !f.contains(abs) {
		return "", fmt.Errorf("%w: path escapes pages root: %s", apperr.ErrForbidden, userPath)
	}
	return abs, nil
}

// ResolveDocument is Resolve for page paths: the path must be non-empty and end with DocExt.
func (f *FS) ResolveDocument(userPath string) (string, error) {
	if strings.TrimSpace(userPath) == "" {
		return "", fmt.Errorf("%w: path is required", apperr.ErrInvalidInput)
	}
	abs, err := f.Resolve(userPath)
	if err != nil {
		return "", err
	}
	if !hasDocExt(abs) {
		return "", fmt.Errorf("%w: only %s pages are supported: %s", apperr.ErrInvalidInput, DocExt, userPath)
	}
	return abs, nil
}

// checkContained re-validates a path built by concatenation.
func (f *FS) checkContained(p string) (string, error) {
	abs, err := canonical(p)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %q: %w", p, err)
	}
	if !f.contains(abs) {
		return "", fmt.Errorf("%w: destination escapes pages root", apperr.ErrForbidden)
	}
	return abs, nil
}

// foldCase is set where the default filesystem ignores case.
var foldCase = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

func samePath(a, b string) bool {
	if foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// contains reports whether abs is the root or lies below it.
func (f *FS) contains(abs string) bool {
	return samePath(abs, f.root) || isWithin(abs, f.root)
}

// isWithin reports whether child lies strictly below parent.
func isWithin(child, parent string) bool {
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return len(child) > len(prefix) && samePath(child[:len(prefix)], prefix)
}

// rel returns the slash separated path of abs relative to the root, "" for the root.
func (f *FS) rel(abs string) string {
	r, err := filepath.Rel(f.root, abs)
	if err != nil || r == "." {
		return ""
	}
	return strings.TrimPrefix(filepath.ToSlash(r), "/")
}

// canonical makes p absolute and resolves symlinks on its longest existing ancestor.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	cur, rest := abs, ""
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			if rest == "" {
				return real, nil
			}
			return filepath.Join(real, rest), nil
		} else if !os.IsNotExist(err) {
			return abs, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
