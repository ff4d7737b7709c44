package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/storage"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(fs), fs.Root()
}

func TestName(t *testing.T) {
	cases := map[string]string{
		"My Shot.PNG":      "My-Shot.png",
		`..\..\evil.gif`:   "evil.gif",
		"a/b/c.jpeg":       "c.jpeg",
		"***.webp":         "image.webp",
		"  spaced  .svg":   "spaced.svg",
		"plain":            "plain",
		"what?is:this.Jpg": "what-is-this.jpg",
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllowed(t *testing.T) {
	if !AllowedType("image/png") || !AllowedType("IMAGE/SVG+XML; charset=utf-8") {
		t.Error("image types rejected")
	}
	if AllowedType("application/pdf") || AllowedType("") {
		t.Error("non-image accepted")
	}
	if ExtForType("image/jpeg") != ".jpg" || ExtForType("text/plain") != "" {
		t.Error("ExtForType mismatch")
	}
	if !AllowedExt("x.JPEG") || AllowedExt("x.md") {
		t.Error("AllowedExt mismatch")
	}
}

func TestSaveNextToPage(t *testing.T) {
	s, root := newStore(t)
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "p.md"), []byte("# P"), 0o644); err != nil {
		t.Fatal(err)
	}

	u, n, err := s.Save("docs/p.md", "a b.png", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if u != "/pages/docs/a%20b.png" || n != 4 {
		t.Errorf("url = %q n = %d", u, n)
	}
	abs, err := s.Open("docs/a b.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if filepath.Dir(abs) != filepath.Join(root, "docs") {
		t.Errorf("abs = %s", abs)
	}
}

func TestSaveFallbackAndOverwrite(t *testing.T) {
	s, root := newStore(t)
	for _, body := range []string{"one", "two"} {
		u, _, err := s.Save("notes.txt", "x.gif", strings.NewReader(body))
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if u != "/pages/uploads/images/x.gif" {
			t.Errorf("url = %q", u)
		}
	}
	data, _ := os.ReadFile(filepath.Join(root, "uploads", "images", "x.gif"))
	if string(data) != "two" {
		t.Errorf("content = %q", data)
	}

	if _, _, err := s.Save("", "x.exe", strings.NewReader("")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("exe err = %v", err)
	}
}

func TestOpenRejectsPagesAndEscapes(t *testing.T) {
	s, root := newStore(t)
	_ = os.WriteFile(filepath.Join(root, "p.md"), []byte("x"), 0o644)
	if _, err := s.Open("p.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("page err = %v", err)
	}
	if _, err := s.Open("missing.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := s.Open("/etc/x.png"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("escape err = %v", err)
	}
}

func TestCheckContent(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

	ok := []struct {
		data []byte
		ext  string
	}{
		{png, ".png"},
		{png, ".PNG"},
		{jpeg, ".jpg"},
		{jpeg, ".jpeg"},
		{[]byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`), ".svg"},
	}
	for _, tt := range ok {
		if err := CheckContent(tt.data, tt.ext); err != nil {
			t.Errorf("CheckContent(%q, %s): %v", tt.data[:4], tt.ext, err)
		}
	}

	bad := []struct {
		data []byte
		ext  string
	}{
		{[]byte("plain text"), ".png"},
		{png, ".gif"},
		{jpeg, ".webp"},
		{[]byte("<html><body/></html>"), ".svg"},
	}
	for _, tt := range bad {
		if err := CheckContent(tt.data, tt.ext); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CheckContent(%q, %s) err = %v, want ErrInvalidInput", tt.data, tt.ext, err)
		}
	}
}
