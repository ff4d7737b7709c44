package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nodepad/internal/apperr"
)

func TestCreateFile(t *testing.T) {
	s := tempPages(t)
	rel, err := s.Create("docs/readme.md", "file")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rel != "docs/readme.md" {
		t.Errorf("rel = %q", rel)
	}
	got, err := s.ReadPage(rel)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(got) != "# readme\n\nStart writing here...\n" {
		t.Errorf("seed = %q", got)
	}
	if !existsRel(s, "docs/readme.tags") {
		t.Error("expected empty tag sidecar")
	}
}

func TestCreateConflicts(t *testing.T) {
	s := tempPages(t)
	if _, err := s.Create("a.md", "file"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("a.md", "file"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("file err = %v, want ErrConflict", err)
	}
	if _, err := s.Create("dir", "folder"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("dir", "directory"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("folder err = %v, want ErrConflict", err)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := tempPages(t)
	tests := []struct {
		path, typ string
		want      error
	}{
		{"", "file", apperr.ErrInvalidInput},
		{"a.txt", "file", apperr.ErrInvalidInput},
		{"a.md", "symlink", apperr.ErrInvalidInput},
		{"../evil.md", "file", apperr.ErrForbidden},
	}
	for _, tt := range tests {
		if _, err := s.Create(tt.path, tt.typ); !errors.Is(err, tt.want) {
			t.Errorf("Create(%q, %q) err = %v, want %v", tt.path, tt.typ, err, tt.want)
		}
	}
}

func TestDeleteFileRemovesSidecar(t *testing.T) {
	s := tempPages(t)
	if _, err := s.Create("n.md", "file"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTags("n.md", []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("n.md", false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if existsRel(s, "n.md") || existsRel(s, "n.tags") {
		t.Error("page and sidecar should be gone")
	}
}

func TestDeleteFolderNeedsConfirmation(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "full/a.md", "a")
	if err := os.Mkdir(filepath.Join(s.Root(), "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("empty", false); err != nil {
		t.Errorf("empty folder: %v", err)
	}
	if err := s.Delete("full", false); !errors.Is(err, apperr.ErrNeedsConfirmation) {
		t.Fatalf("err = %v, want ErrNeedsConfirmation", err)
	}
	if !existsRel(s, "full/a.md") {
		t.Fatal("unconfirmed delete must not touch contents")
	}
	if err := s.Delete("full", true); err != nil {
		t.Fatalf("recursive: %v", err)
	}
	if existsRel(s, "full") {
		t.Error("folder should be gone")
	}
}

func TestDeleteErrors(t *testing.T) {
	s := tempPages(t)
	if err := s.Delete("ghost.md", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("/", true); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("root err = %v, want ErrForbidden", err)
	}
	if err := s.Delete(".", true); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("dot err = %v, want ErrForbidden", err)
	}
}

func TestMoveCarriesSidecar(t *testing.T) {
	s := tempPages(t)
	if _, err := s.Create("n.md", "file"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTags("n.md", []string{"go"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("sub", "folder"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Move("n.md", "sub")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.NewPath != "sub/n.md" || res.OldPath != "n.md" || res.Type != TypeFile {
		t.Errorf("result = %+v", res)
	}
	got, _ := s.ReadTags("sub/n.md")
	if len(got) != 1 || got[0] != "go" {
		t.Errorf("tags after move = %v", got)
	}
	if existsRel(s, "n.tags") {
		t.Error("old sidecar should be gone")
	}
}

func TestMoveErrors(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "a.md", "a")
	writeRaw(t, s, "dst/a.md", "other")
	writeRaw(t, s, "outer/inner/x.md", "x")
	writeRaw(t, s, "plain.txt", "x")

	tests := []struct {
		name, src, dst string
		want           error
	}{
		{"conflict", "a.md", "dst", apperr.ErrConflict},
		{"already in folder", "a.md", "", apperr.ErrConflict},
		{"folder already in parent", "outer/inner", "outer", apperr.ErrConflict},
		{"missing source", "nope.md", "dst", apperr.ErrNotFound},
		{"missing destination", "a.md", "nowhere", apperr.ErrNotFound},
		{"into itself", "outer", "outer", apperr.ErrInvalidInput},
		{"into descendant", "outer", "outer/inner", apperr.ErrInvalidInput},
		{"root", "", "dst", apperr.ErrInvalidInput},
		{"non page", "plain.txt", "dst", apperr.ErrInvalidInput},
		{"escape", "a.md", "../x", apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Move(tt.src, tt.dst); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if !existsRel(s, "outer/inner/x.md") {
		t.Error("failed move must leave the tree untouched")
	}
}

func TestMoveFolder(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "proj/a.md", "a")
	writeRaw(t, s, "proj/deep/b.md", "b")
	writeRaw(t, s, "archive/.keep", "")
	if err := s.WriteTags("proj/a.md", []string{"Go", "web"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTags("proj/deep/b.md", []string{"ops"}); err != nil {
		t.Fatal(err)
	}

	res, err := s.Move("proj", "archive")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.NewPath != "archive/proj" || res.Type != TypeDirectory {
		t.Errorf("result = %+v", res)
	}
	if !existsRel(s, "archive/proj/a.md") {
		t.Error("contents should follow the folder")
	}

	got, _ := s.ReadTags("archive/proj/a.md")
	if strings.Join(got, ",") != "Go,web" {
		t.Errorf("tags of moved page = %v", got)
	}
	got, _ = s.ReadTags("archive/proj/deep/b.md")
	if strings.Join(got, ",") != "ops" {
		t.Errorf("tags of nested moved page = %v", got)
	}
	for _, old := range []string{"proj/a.tags", "proj/deep/b.tags"} {
		if existsRel(s, old) {
			t.Errorf("%s should have moved with its page", old)
		}
	}
}

func TestRename(t *testing.T) {
	s := tempPages(t)
	if _, err := s.Create("n.md", "file"); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTags("n.md", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	res, err := s.Rename("n.md", "sub/dir/better")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.NewPath != "better.md" {
		t.Errorf("new path = %q, want better.md", res.NewPath)
	}
	if !existsRel(s, "better.tags") || existsRel(s, "n.tags") {
		t.Error("sidecar should follow the rename")
	}
}

func TestRenameCollision(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "a.md", "a")
	writeRaw(t, s, "b.md", "b")
	if _, err := s.Rename("a.md", "b"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if _, err := s.Rename("a.md", "  "); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank err = %v, want ErrInvalidInput", err)
	}
}

func TestRenameCaseOnly(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "note.md", "n")
	res, err := s.Rename("note.md", "Note.md")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.NewPath != "Note.md" {
		t.Errorf("new path = %q", res.NewPath)
	}
}

func TestEntityLifecycle(t *testing.T) {
	s := tempPages(t)

	if _, err := s.Create("docs", "folder"); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if _, err := s.Create("docs/readme.md", "file"); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if !existsRel(s, "docs/readme.md") {
		t.Fatal("docs/readme.md should exist")
	}

	if _, err := s.Rename("docs/readme.md", "intro.md"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if !existsRel(s, "docs/intro.md") || existsRel(s, "docs/readme.md") {
		t.Fatal("rename: want docs/intro.md only")
	}

	if _, err := s.Create("archive", "folder"); err != nil {
		t.Fatalf("create archive: %v", err)
	}
	if _, err := s.Move("docs/intro.md", "archive"); err != nil {
		t.Fatalf("move to archive: %v", err)
	}
	if !existsRel(s, "archive/intro.md") || existsRel(s, "docs/intro.md") {
		t.Fatal("move: want archive/intro.md only")
	}

	if _, err := s.Move("archive/intro.md", ""); err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if !existsRel(s, "intro.md") || existsRel(s, "archive/intro.md") {
		t.Fatal("move to root: want intro.md only")
	}
	if !existsRel(s, "intro.tags") {
		t.Error("sidecar should have followed every step")
	}
}
