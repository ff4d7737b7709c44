// Package pageservice coordinates the page store with the search engine,
// the tag cache, live events and backups.
package pageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/checksum"
	"github.com/starford/nodepad/internal/index"
	"github.com/starford/nodepad/internal/markdown"
	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/search"
	"github.com/starford/nodepad/internal/sse"
	"github.com/starford/nodepad/internal/storage"
	"github.com/starford/nodepad/internal/tags"
	"github.com/starford/nodepad/internal/treeview"
)

// Notifier receives page change events.
type Notifier interface {
	PublishPageEvent(kind, path, oldPath string)
}

// BackupTrigger requests an asynchronous backup.
type BackupTrigger interface {
	Trigger()
}

// PageDetail is the full representation of a page. Content is empty for metadata requests.
type PageDetail struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveRequest replaces the content of a page and, when Tags is non-nil, its tags.
// A non-empty IfMatch must equal the checksum of the current content.
type SaveRequest struct {
	Path    string
	Content string
	Tags    []string
	IfMatch string
}

// TreeQuery selects the post-processing applied to the page tree.
type TreeQuery struct {
	Path      string
	Tags      []string
	Sorted    bool
	DirsFirst bool
	Counts    bool
	Titles    bool
}

// Service coordinates storage, search, cache and notification.
type Service struct {
	store   storage.Provider
	engine  *search.Engine
	cache   *index.DB
	events  Notifier
	watched bool
	backups BackupTrigger
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache keeps the SQLite tag cache in step with mutations and serves tag queries from it.
func WithCache(db *index.DB) Option {
	return func(s *Service) { s.cache = db }
}

// WithEvents publishes page changes. When watched is set a file watcher already
// reports creations, updates and deletions, so only moves are published here.
func WithEvents(n Notifier, watched bool) Option {
	return func(s *Service) {
		s.events = n
		s.watched = watched
	}
}

// WithBackups requests a backup after every save.
func WithBackups(t BackupTrigger) Option {
	return func(s *Service) { s.backups = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a page service over store.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = search.New(store, s.logger)
	return s
}

// Store returns the underlying page store.
func (s *Service) Store() storage.Provider { return s.store }

// Tree builds the page tree and applies the requested views in order:
// tag filter, sort, counts, titles. Without Sorted the raw files-then-folders
// order is kept. The second result is the total page count.
func (s *Service) Tree(ctx context.Context, q TreeQuery) ([]models.Node, int, error) {
	nodes, err := s.store.Tree(q.Path)
	if err != nil {
		return nil, 0, err
	}
	if len(tags.NormalizeAll(q.Tags)) > 0 {
		idx, err := s.TagIndex(ctx, false)
		if err != nil {
			return nil, 0, err
		}
		nodes = treeview.FilterByTags(nodes, q.Tags, idx.ByPath)
	}
	if q.Sorted {
		nodes = treeview.Sort(nodes, q.DirsFirst)
	}
	nodes, total := treeview.AttachCounts(nodes)
	if !q.Counts {
		stripCounts(nodes)
	}
	if q.Titles {
		nodes = treeview.AttachTitles(nodes, s.store.ReadPage)
	}
	return nodes, total, nil
}

func stripCounts(nodes []models.Node) {
	for i := range nodes {
		nodes[i].FileCount = nil
		nodes[i].TotalFileCount = nil
		stripCounts(nodes[i].Children)
	}
}

// Page returns a page with its content and tags.
func (s *Service) Page(_ context.Context, path string) (*PageDetail, error) {
	return s.detail(path, true)
}

// Meta returns a page without its content.
func (s *Service) Meta(_ context.Context, path string) (*PageDetail, error) {
	return s.detail(path, false)
}

func (s *Service) detail(path string, withContent bool) (*PageDetail, error) {
	info, err := s.store.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := s.store.ReadPage(path)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ReadTags(path)
	if err != nil {
		return nil, err
	}
	d := &PageDetail{
		Path:      info.Path,
		Name:      info.Name,
		Title:     markdown.ExtractTitle(string(data), info.Name),
		Tags:      list,
		Checksum:  checksum.Sum(data),
		Size:      info.Size,
		UpdatedAt: info.UpdatedAt,
	}
	if withContent {
		d.Content = string(data)
	}
	return d, nil
}

// Save writes page content and optionally its tags, then refreshes the cache,
// publishes an event and requests a backup.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*PageDetail, error) {
	existing, err := s.store.ReadPage(req.Path)
	created := false
	switch {
	case err == nil:
		if req.IfMatch != "" && req.IfMatch != checksum.Sum(existing) {
			return nil, fmt.Errorf("%w: page changed since it was loaded", apperr.ErrConflict)
		}
	case errors.Is(err, apperr.ErrNotFound):
		created = true
	default:
		return nil, err
	}

	if err := s.store.SavePage(req.Path, []byte(req.Content)); err != nil {
		return nil, err
	}
	if req.Tags != nil {
		if err := s.store.WriteTags(req.Path, req.Tags); err != nil {
			return nil, err
		}
	}

	d, err := s.detail(req.Path, false)
	if err != nil {
		return nil, err
	}
	s.indexPage(d.Path)
	if created {
		s.publish(false, sse.KindCreated, d.Path, "")
	} else {
		s.publish(false, sse.KindUpdated, d.Path, "")
	}
	if s.backups != nil {
		s.backups.Trigger()
	}
	s.logger.Info("page saved", slog.String("path", d.Path), slog.Int64("size", d.Size))
	return d, nil
}

// Create makes a new page or folder and returns its relative path.
func (s *Service) Create(_ context.Context, path, typ string) (string, error) {
	rel, err := s.store.Create(path, typ)
	if err != nil {
		return "", err
	}
	if storage.EntityType(typ) == storage.TypeFile {
		s.indexPage(rel)
	}
	s.publish(false, sse.KindCreated, rel, "")
	s.logger.Info("entity created", slog.String("path", rel), slog.String("type", storage.EntityType(typ)))
	return rel, nil
}

// Delete removes a page or folder. See storage.FS.Delete for the confirmation rule.
func (s *Service) Delete(_ context.Context, path string, recursive bool) error {
	if err := s.store.Delete(path, recursive); err != nil {
		return err
	}
	s.resync()
	s.publish(false, sse.KindDeleted, path, "")
	s.logger.Info("entity deleted", slog.String("path", path), slog.Bool("recursive", recursive))
	return nil
}

// Move relocates a page or folder into destDir.
func (s *Service) Move(_ context.Context, src, destDir string) (*storage.MoveResult, error) {
	res, err := s.store.Move(src, destDir)
	if err != nil {
		return nil, err
	}
	s.afterRelocate(res)
	return res, nil
}

// Rename renames a page or folder in place.
func (s *Service) Rename(_ context.Context, path, newName string) (*storage.MoveResult, error) {
	res, err := s.store.Rename(path, newName)
	if err != nil {
		return nil, err
	}
	s.afterRelocate(res)
	return res, nil
}

func (s *Service) afterRelocate(res *storage.MoveResult) {
	if res.OldPath == res.NewPath {
		return
	}
	s.resync()
	s.publish(true, sse.KindMoved, res.NewPath, res.OldPath)
	s.logger.Info("entity moved", slog.String("from", res.OldPath), slog.String("to", res.NewPath))
}

// ValidateName checks a proposed name for a new entity.
func (s *Service) ValidateName(_ context.Context, parent, typ, name string) storage.NameValidation {
	return s.store.ValidateName(parent, typ, name)
}

// Breadcrumbs returns the ancestry of a path.
func (s *Service) Breadcrumbs(_ context.Context, path string) ([]models.Breadcrumb, error) {
	return s.store.Breadcrumbs(path)
}

// Render returns the HTML preview of a page.
func (s *Service) Render(_ context.Context, path string) (string, error) {
	data, err := s.store.ReadPage(path)
	if err != nil {
		return "", err
	}
	return markdown.Render(string(data))
}

// Search ranks pages against query.
func (s *Service) Search(ctx context.Context, query string, required []string, limit int) ([]models.SearchResult, error) {
	return s.engine.Search(ctx, query, required, limit)
}

// Recent lists recently modified pages.
func (s *Service) Recent(ctx context.Context, required []string, limit int) ([]models.PageSummary, error) {
	return s.engine.Recent(ctx, required, limit)
}

// Untagged lists pages without tags.
func (s *Service) Untagged(ctx context.Context) ([]models.PageSummary, error) {
	return s.engine.Untagged(ctx)
}

// TagIndex returns the path → tags map with counts. With a cache configured the
// index is served from it; refresh resynchronizes the cache first.
func (s *Service) TagIndex(ctx context.Context, refresh bool) (*tags.Index, error) {
	if s.cache == nil {
		return s.engine.TagIndex(ctx)
	}
	if refresh {
		if err := index.Sync(s.cache, s.store, s.logger); err != nil {
			return nil, err
		}
	}
	return s.cache.TagIndex()
}

// TagCounts returns every tag with its page count.
func (s *Service) TagCounts(ctx context.Context) ([]tags.Count, error) {
	idx, err := s.TagIndex(ctx, false)
	if err != nil {
		return nil, err
	}
	return idx.Sorted(), nil
}

// SuggestTags returns known tags starting with prefix.
func (s *Service) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	idx, err := s.TagIndex(ctx, false)
	if err != nil {
		return nil, err
	}
	return idx.Suggest(prefix, search.Clamp(limit, search.DefaultSuggestLimit, search.MaxSuggestLimit)), nil
}

func (s *Service) indexPage(path string) {
	if s.cache == nil {
		return
	}
	if err := index.IndexPage(s.cache, s.store, path); err != nil {
		s.logger.Warn("cache update failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Service) resync() {
	if s.cache == nil {
		return
	}
	if err := index.Sync(s.cache, s.store, s.logger); err != nil {
		s.logger.Warn("cache sync failed", slog.String("error", err.Error()))
	}
}

// publish forwards an event unless the watcher already reports it.
func (s *Service) publish(always bool, kind, path, oldPath string) {
	if s.events == nil || (s.watched && !always) {
		return
	}
	s.events.PublishPageEvent(kind, path, oldPath)
}
