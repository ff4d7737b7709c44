// Package search ranks pages against a query and computes the aggregate
// read-only views (recent, untagged, tag index) over the page tree.
package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/markdown"
	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/storage"
	"github.com/starford/nodepad/internal/tags"
)

// Result limits: default and maximum.
const (
	DefaultLimit        = 20
	MaxLimit            = 100
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 50
	DefaultRecentLimit  = 20
	MaxRecentLimit      = 200

	minQueryLen = 2
)

// Scoring weights.
const (
	nameWeight       = 50
	pathWeight       = 20
	titleWeight      = 40
	occurrenceWeight = 5
	maxOccurrences   = 10
	proximityBase    = 30
	proximityDivisor = 50
	snippetLead      = 40
	snippetLen       = 200
	ellipsis         = "…"
)

// Clamp returns def when limit is not positive and upper when it exceeds upper.
func Clamp(limit, def, upper int) int {
	switch {
	case limit <= 0:
		return def
	case limit > upper:
		return upper
	default:
		return limit
	}
}

// Engine answers queries by re-reading pages from the store on every call.
type Engine struct {
	store  storage.Provider
	logger *slog.Logger
}

// New creates a search engine over store.
func New(store storage.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

type candidate struct {
	info    models.PageInfo
	tags    []string
	content string
	title   string
}

// candidates returns every readable page whose normalized tags contain required.
func (e *Engine) candidates(ctx context.Context, required []string) ([]candidate, error) {
	docs, err := e.store.Documents()
	if err != nil {
		return nil, err
	}
	required = tags.NormalizeAll(required)
	out := make([]candidate, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list, err := e.store.ReadTags(d.Path)
		if err != nil {
			e.logger.Debug("search: skip page tags", slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		if len(required) > 0 && !tags.ContainsAll(tags.NormalizeAll(list), required) {
			continue
		}
		out = append(out, candidate{info: d, tags: list})
	}
	return out, nil
}

// load reads content and title, reporting false when the page is unreadable.
func (e *Engine) load(c *candidate) bool {
	data, err := e.store.ReadPage(c.info.Path)
	if err != nil {
		e.logger.Debug("search: skip unreadable page", slog.String("path", c.info.Path), slog.String("error", err.Error()))
		return false
	}
	c.content = string(data)
	c.title = markdown.ExtractTitle(c.content, c.info.Name)
	return true
}

// Search ranks pages matching query by name, path, title and content.
func (e *Engine) Search(ctx context.Context, query string, required []string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLen {
		return nil, fmt.Errorf("%w: query must be at least %d characters", apperr.ErrInvalidInput, minQueryLen)
	}
	limit = Clamp(limit, DefaultLimit, MaxLimit)
	needle := lowerRunes([]rune(query))

	cands, err := e.candidates(ctx, required)
	if err != nil {
		return nil, err
	}
	results := []models.SearchResult{}
	for i := range cands {
		c := &cands[i]
		if !e.load(c) {
			continue
		}
		if r, ok := score(c, needle); ok {
			results = append(results, r)
		}
	}

	slices.SortStableFunc(results, func(a, b models.SearchResult) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func score(c *candidate, needle []rune) (models.SearchResult, bool) {
	fileName := path.Base(c.info.Path)
	_, nameHit := containsFold(c.info.Name, needle)
	_, pathHit := containsFold(c.info.Path, needle)
	_, titleHit := containsFold(c.title, needle)

	content := []rune(c.content)
	hits := occurrences(lowerRunes(content), needle)

	if !nameHit && !pathHit && !titleHit && len(hits) == 0 {
		return models.SearchResult{}, false
	}

	s := 0
	if nameHit {
		s += nameWeight
	}
	if pathHit {
		s += pathWeight
	}
	if titleHit {
		s += titleWeight
	}

	r := models.SearchResult{Path: c.info.Path, Title: c.title}
	if len(hits) > 0 {
		s += min(len(hits), maxOccurrences) * occurrenceWeight
		s += max(0, proximityBase-hits[0]/proximityDivisor)
		r.Snippet, r.Highlights = contentSnippet(content, hits[0], needle)
	} else {
		switch {
		case nameHit:
			r.Snippet, r.Highlights = synthSnippet("Match in file name: ", fileName, needle)
		case pathHit:
			r.Snippet, r.Highlights = synthSnippet("Match in path: ", c.info.Path, needle)
		default:
			r.Snippet, r.Highlights = synthSnippet("Match in title: ", c.title, needle)
		}
	}
	r.Score = s
	return r, true
}

// contentSnippet cuts a window around the first hit and highlights every occurrence in it.
func contentSnippet(content []rune, first int, needle []rune) (string, []models.Span) {
	start := max(0, first-snippetLead)
	end := min(len(content), start+snippetLen)
	raw := make([]rune, end-start)
	for i, r := range content[start:end] {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		raw[i] = r
	}

	shift := 0
	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
		shift = 1
	}
	b.WriteString(string(raw))
	if end < len(content) {
		b.WriteString(ellipsis)
	}

	spans := []models.Span{}
	for _, off := range occurrences(lowerRunes(raw), needle) {
		spans = append(spans, models.Span{Start: off + shift, Length: len(needle)})
	}
	return b.String(), spans
}

func synthSnippet(prefix, value string, needle []rune) (string, []models.Span) {
	i, _ := containsFold(value, needle)
	return prefix + value, []models.Span{{
		Start:  utf8.RuneCountInString(prefix) + i,
		Length: len(needle),
	}}
}
