// Package tags normalizes document tags and aggregates them into an index.
package tags

import (
	"cmp"
	"slices"
	"strings"
)

// Normalize lowercases a tag, collapses runs of whitespace to a single space and trims it.
func Normalize(tag string) string {
	return strings.Join(strings.Fields(strings.ToLower(tag)), " ")
}

// NormalizeAll normalizes every tag, dropping empties and duplicates. Order of first
// appearance is kept.
func NormalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Clean trims display tags and removes empties and case-insensitive duplicates,
// keeping the first display form seen.
func Clean(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := Normalize(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitCSV splits a comma separated tag list, trimming pieces and dropping empties.
func SplitCSV(csv string) []string {
	var out []string
	for _, piece := range strings.Split(csv, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// ContainsAll reports whether have (normalized) is a superset of required (normalized).
func ContainsAll(have, required []string) bool {
	for _, r := range required {
		if !slices.Contains(have, r) {
			return false
		}
	}
	return true
}

// Index maps every document to its normalized tags and counts documents per tag.
type Index struct {
	ByPath map[string][]string `json:"byPath"`
	Counts map[string]int      `json:"counts"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		ByPath: make(map[string][]string),
		Counts: make(map[string]int),
	}
}

// Add records the tags of one document. Tags are normalized on the way in.
func (ix *Index) Add(path string, docTags []string) {
	norm := NormalizeAll(docTags)
	ix.ByPath[path] = norm
	for _, t := range norm {
		ix.Counts[t]++
	}
}

// Sorted returns the tag counts ordered by descending count then tag name.
func (ix *Index) Sorted() []Count {
	out := make([]Count, 0, len(ix.Counts))
	for t, n := range ix.Counts {
		out = append(out, Count{Tag: t, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return out
}

// Suggest returns known tags starting with prefix (case-insensitive), alphabetically, at most limit.
func (ix *Index) Suggest(prefix string, limit int) []string {
	p := Normalize(prefix)
	out := make([]string, 0)
	for t := range ix.Counts {
		if strings.HasPrefix(t, p) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count is a tag and how many documents carry it.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
