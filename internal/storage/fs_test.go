package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nodepad/internal/apperr"
)

func tempPages(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func writeRaw(t *testing.T, s *FS, rel, content string) {
	t.Helper()
	p := filepath.Join(s.Root(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func existsRel(s *FS, rel string) bool {
	_, err := os.Stat(filepath.Join(s.Root(), filepath.FromSlash(rel)))
	return err == nil
}

func TestNewFSRejectsMissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestSaveAndReadPage(t *testing.T) {
	s := tempPages(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.SavePage("note.md", content); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	got, err := s.ReadPage("note.md")
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestSavePageCreatesSubdirs(t *testing.T) {
	s := tempPages(t)
	if err := s.SavePage("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	got, err := s.ReadPage("a/b/c.md")
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestSavePageLeavesNoTempFiles(t *testing.T) {
	s := tempPages(t)
	for i := 0; i < 3; i++ {
		if err := s.SavePage("note.md", []byte(strings.Repeat("x", i))); err != nil {
			t.Fatalf("SavePage: %v", err)
		}
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".nodepad-tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestReadPageMissing(t *testing.T) {
	s := tempPages(t)
	_, err := s.ReadPage("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReadPageRequiresDocExt(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "secret.txt", "x")
	_, err := s.ReadPage("secret.txt")
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestStat(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "sub/Note.md", "12345")
	info, err := s.Stat("sub/Note.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Path != "sub/Note.md" || info.Name != "Note" || info.Size != 5 {
		t.Errorf("info = %+v", info)
	}
}

func TestDocuments(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "a.md", "a")
	writeRaw(t, s, "sub/b.MD", "b")
	writeRaw(t, s, "sub/skip.txt", "x")
	writeRaw(t, s, ".hidden/c.md", "c")

	docs, err := s.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	got := map[string]bool{}
	for _, d := range docs {
		got[d.Path] = true
	}
	if len(docs) != 2 || !got["a.md"] || !got["sub/b.MD"] {
		t.Errorf("documents = %+v", docs)
	}
}

func TestBreadcrumbs(t *testing.T) {
	s := tempPages(t)
	crumbs, err := s.Breadcrumbs("docs/guides/setup.md")
	if err != nil {
		t.Fatalf("Breadcrumbs: %v", err)
	}
	want := []struct{ name, path string }{
		{"docs", "docs"},
		{"guides", "docs/guides"},
		{"setup", "docs/guides/setup.md"},
	}
	if len(crumbs) != len(want) {
		t.Fatalf("len = %d, want %d", len(crumbs), len(want))
	}
	for i, w := range want {
		if crumbs[i].Name != w.name || crumbs[i].Path != w.path {
			t.Errorf("crumb[%d] = %+v, want %s %s", i, crumbs[i], w.name, w.path)
		}
	}

	root, err := s.Breadcrumbs("")
	if err != nil || len(root) != 0 {
		t.Errorf("root crumbs = %v, %v", root, err)
	}
}
