// Package storage is the sandboxed page store: path resolution, tag sidecars,
// tree listing and entity mutations over a single pages directory.
package storage

import "github.com/starford/nodepad/internal/models"

// Provider is the interface for page file operations.
// Every path argument is relative to the pages root and uses forward slashes.
type Provider interface {
	// Root returns the canonical absolute pages directory.
	Root() string
	// Resolve maps a user path onto an absolute path inside the root.
	Resolve(path string) (string, error)
	// ResolveDocument is Resolve restricted to page paths.
	ResolveDocument(path string) (string, error)

	// ReadPage returns the raw bytes of a page.
	ReadPage(path string) ([]byte, error)
	// SavePage atomically writes a page.
	SavePage(path string, content []byte) error
	// Stat returns metadata of a page.
	Stat(path string) (*models.PageInfo, error)
	// Documents lists every page in the tree.
	Documents() ([]models.PageInfo, error)

	// ReadTags returns the sidecar tags of a page.
	ReadTags(path string) ([]string, error)
	// WriteTags replaces the sidecar tags of a page.
	WriteTags(path string, tags []string) error

	// Tree builds the node tree below a folder.
	Tree(dir string) ([]models.Node, error)
	// Breadcrumbs returns the ancestry of a path.
	Breadcrumbs(path string) ([]models.Breadcrumb, error)

	Create(path, typ string) (string, error)
	Delete(path string, recursive bool) error
	Move(src, destDir string) (*MoveResult, error)
	Rename(path, newName string) (*MoveResult, error)
	ValidateName(parent, typ, name string) NameValidation
}

var _ Provider = (*FS)(nil)
