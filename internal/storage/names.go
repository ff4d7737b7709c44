package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxSuggestAttempts bounds the search for a free "-N" suffix.
const maxSuggestAttempts = 1000

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	dashRun       = regexp.MustCompile(`-{2,}`)
)

// NameValidation is the verdict on a proposed entity name.
type NameValidation struct {
	Valid         bool   `json:"valid"`
	Message       string `json:"message,omitempty"`
	SuggestedName string `json:"suggestedName,omitempty"`
}

// SanitizeName replaces characters that are unsafe in file names with '-',
// turns whitespace runs into '-', collapses repeated dashes and trims them from the ends.
func SanitizeName(name string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '-'
		}
		return r
	}, name)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidateName checks a proposed name for a new page or folder below parent.
// It never fails: problems are reported through the result.
func (f *FS) ValidateName(parent, typ, name string) NameValidation {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(typ) == "" || name == "" {
		return invalidName("type and name are required")
	}
	kind := EntityType(typ)
	if kind == "" {
		return invalidName(fmt.Sprintf("unsupported type %q", typ))
	}
	if strings.ContainsAny(name, `/\`) {
		return invalidName("name must not contain path separators")
	}

	parentAbs, err := f.Resolve(parent)
	if err != nil {
		return invalidName("invalid parent path")
	}
	if info, err := os.Stat(parentAbs); err != nil || !info.IsDir() {
		return invalidName("parent folder does not exist")
	}

	sanitized := SanitizeName(name)
	if kind == TypeFile {
		if !hasDocExt(sanitized) {
			sanitized += DocExt
		}
	} else if hasDocExt(sanitized) {
		sanitized = sanitized[:len(sanitized)-len(DocExt)]
	}
	if sanitized == "" || sanitized == DocExt || sanitized == "." || sanitized == ".." {
		return invalidName("name contains no usable characters")
	}

	target, err := f.checkContained(filepath.Join(parentAbs, sanitized))
	if err != nil {
		return invalidName("invalid name")
	}
	if exists(target) {
		return NameValidation{
			Message:       fmt.Sprintf("%s already exists", sanitized),
			SuggestedName: uniqueName(parentAbs, sanitized, kind),
		}
	}
	if sanitized != name {
		return NameValidation{Valid: true, SuggestedName: sanitized}
	}
	return NameValidation{Valid: true}
}

// uniqueName appends -2, -3, ... before the extension until the name is free.
func uniqueName(dir, name, kind string) string {
	base, ext := name, ""
	if kind == TypeFile {
		ext = name[len(name)-len(DocExt):]
		base = name[:len(name)-len(DocExt)]
	}
	candidate := name
	for i := 2; i < 2+maxSuggestAttempts; i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
		if !exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	return candidate
}

func invalidName(msg string) NameValidation {
	return NameValidation{Message: msg}
}
