package search

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/tags"
)

// Recent lists pages by descending modification time, optionally filtered by tags.
func (e *Engine) Recent(ctx context.Context, required []string, limit int) ([]models.PageSummary, error) {
	limit = Clamp(limit, DefaultRecentLimit, MaxRecentLimit)
	cands, err := e.candidates(ctx, required)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return b.info.UpdatedAt.Compare(a.info.UpdatedAt)
	})
	out := []models.PageSummary{}
	for i := range cands {
		if len(out) == limit {
			break
		}
		if !e.load(&cands[i]) {
			continue
		}
		out = append(out, summary(&cands[i]))
	}
	return out, nil
}

// Untagged lists pages without any tag, ordered by title.
func (e *Engine) Untagged(ctx context.Context) ([]models.PageSummary, error) {
	cands, err := e.candidates(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := []models.PageSummary{}
	for i := range cands {
		c := &cands[i]
		if len(tags.NormalizeAll(c.tags)) > 0 || !e.load(c) {
			continue
		}
		out = append(out, summary(c))
	}
	slices.SortStableFunc(out, func(a, b models.PageSummary) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
	return out, nil
}

// TagIndex reads every sidecar into a path to tags map with global counts.
func (e *Engine) TagIndex(ctx context.Context) (*tags.Index, error) {
	cands, err := e.candidates(ctx, nil)
	if err != nil {
		return nil, err
	}
	idx := tags.NewIndex()
	for _, c := range cands {
		idx.Add(c.info.Path, c.tags)
	}
	return idx, nil
}

func summary(c *candidate) models.PageSummary {
	return models.PageSummary{
		Path:      c.info.Path,
		Name:      c.info.Name,
		Title:     c.title,
		Tags:      c.tags,
		Size:      c.info.Size,
		UpdatedAt: c.info.UpdatedAt,
	}
}
