package index

import "github.com/starford/nodepad/internal/tags"

// PageIndex defines the interface for the page tag cache.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PageIndex interface {
	UpsertPage(p PageRow) error
	DeletePage(path string) error
	GetPage(path string) (*PageRow, error)
	AllChecksums() (map[string]string, error)
	TagIndex() (*tags.Index, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies PageIndex at compile time.
var _ PageIndex = (*DB)(nil)
