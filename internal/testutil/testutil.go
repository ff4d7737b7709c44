// Package testutil provides shared test helpers for page directories and the tag cache.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/nodepad/internal/index"
	"github.com/starford/nodepad/internal/storage"
)

// TestDB creates a temporary SQLite cache that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "nodepad-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPages creates a temporary pages directory with a storage.FS over it.
// The returned root is canonical.
func TestPages(t *testing.T) (string, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// WriteFile writes content to rel below root, creating parent folders.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
