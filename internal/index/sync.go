package index

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/nodepad/internal/checksum"
	"github.com/starford/nodepad/internal/markdown"
	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/storage"
	"github.com/starford/nodepad/internal/tags"
)

// Sync walks the pages tree and brings the cache up to date:
//   - new/changed pages (content or tags) are upserted
//   - pages removed from disk are deleted from the cache
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	docs, err := store.Documents()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		disk[d.Path] = struct{}{}

		row, err := buildRow(store, d)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[d.Path] == row.Checksum {
			continue
		}
		if err := db.UpsertPage(*row); err != nil {
			logger.Warn("sync: index failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", d.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeletePage(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexPage reads one page and its tags and upserts it.
func IndexPage(db *DB, store storage.Provider, path string) error {
	info, err := store.Stat(path)
	if err != nil {
		return err
	}
	row, err := buildRow(store, *info)
	if err != nil {
		return err
	}
	return db.UpsertPage(*row)
}

// buildRow reads content and tags. The checksum covers both so tag-only edits are detected.
func buildRow(store storage.Provider, info models.PageInfo) (*PageRow, error) {
	data, err := store.ReadPage(info.Path)
	if err != nil {
		return nil, err
	}
	list, err := store.ReadTags(info.Path)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	norm := tags.NormalizeAll(list)
	sum := checksum.Sum(append(data, "\x00"+strings.Join(norm, "\x1f")...))
	return &PageRow{
		Path:      info.Path,
		Title:     markdown.ExtractTitle(string(data), info.Name),
		Checksum:  sum,
		Tags:      norm,
		UpdatedAt: info.UpdatedAt,
	}, nil
}
