package storage

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/starford/nodepad/internal/apperr"
)

func TestResolve(t *testing.T) {
	s := tempPages(t)
	root := s.Root()
	sep := string(filepath.Separator)

	tests := []struct {
		in   string
		want string
	}{
		{"", root},
		{"note.md", root + sep + "note.md"},
		{"a/b.md", root + sep + "a" + sep + "b.md"},
		{`a\b.md`, root + sep + "a" + sep + "b.md"},
		{"a/../b.md", root + sep + "a" + sep + "b.md"},
		{"a..b.md", root + sep + "ab.md"},
		{"./x/./y.md", root + sep + "x" + sep + "y.md"},
	}
	for _, tt := range tests {
		got, err := s.Resolve(tt.in)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	s := tempPages(t)
	for _, in := range []string{"../hack.md", `..\..\hack.md`, "/etc/passwd", "//hack.md"} {
		_, err := s.Resolve(in)
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("Resolve(%q) err = %v, want ErrForbidden", in, err)
		}
	}
}

func TestResolveRejectsSiblingWithSharedPrefix(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "pages")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(parent, "pages-evil"), 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.contains(filepath.Join(filepath.Dir(s.Root()), "pages-evil", "x.md")) {
		t.Error("sibling folder sharing the root prefix must not be contained")
	}
}

func TestResolveRejectsAbsolutePaths(t *testing.T) {
	s := tempPages(t)
	inside := filepath.Join(s.Root(), "a.md")
	if _, err := s.Resolve(inside); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Resolve(%q) err = %v, want ErrForbidden", inside, err)
	}
}

// A sibling folder whose name differs from the root only in case is outside
// the root on case-sensitive filesystems.
func TestResolveCaseVariantSibling(t *testing.T) {
	if foldCase {
		t.Skip("filesystem ignores case")
	}
	parent := t.TempDir()
	root := filepath.Join(parent, "Pages")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	sibling := filepath.Join(parent, "pages")
	if err := os.MkdirAll(sibling, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sibling, "secret.md"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(root, nil)
	if err != nil {
		t.Fatal(err)
	}

	secret := filepath.Join(filepath.Dir(s.Root()), "pages", "secret.md")
	if data, err := s.ReadPage(secret); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("ReadPage(%q) = %q, %v; want ErrForbidden", secret, data, err)
	}
	if s.contains(secret) {
		t.Error("case variant sibling must not be contained")
	}

	if err := os.Symlink(sibling, filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadPage("link/secret.md"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("symlink to case variant sibling err = %v, want ErrForbidden", err)
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	s := tempPages(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(s.Root(), "link")); err != nil {
		t.Fatal(err)
	}
	_, err := s.Resolve("link/x.md")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestResolveDocument(t *testing.T) {
	s := tempPages(t)
	if _, err := s.ResolveDocument("Note.MD"); err != nil {
		t.Errorf("upper case extension: %v", err)
	}
	for _, in := range []string{"", "   ", "note.txt", "folder"} {
		if _, err := s.ResolveDocument(in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ResolveDocument(%q) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

// Any input made of traversal-prone fragments either resolves inside the root or is rejected.
func TestResolveNeverEscapes(t *testing.T) {
	s := tempPages(t)
	parts := []string{"..", ".", "/", `\`, "a", "b.md", "...", "~", "//", "..."}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		var b strings.Builder
		n := 1 + rng.Intn(8)
		for j := 0; j < n; j++ {
			b.WriteString(parts[rng.Intn(len(parts))])
		}
		in := b.String()
		got, err := s.Resolve(in)
		if err != nil {
			if !errors.Is(err, apperr.ErrForbidden) {
				t.Fatalf("Resolve(%q) unexpected err %v", in, err)
			}
			continue
		}
		if !s.contains(got) {
			t.Fatalf("Resolve(%q) = %q escapes %q", in, got, s.Root())
		}
	}
}
