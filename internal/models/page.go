// Package models defines the domain types for NodePad.
package models

import "time"

// Node types.
const (
	NodeFile   = "file"
	NodeFolder = "folder"
)

// Node is one entry of the page tree: a document or a folder.
type Node struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	Type           string `json:"type"`
	Children       []Node `json:"children"`
	FileCount      *int   `json:"fileCount,omitempty"`
	TotalFileCount *int   `json:"totalFileCount,omitempty"`
	Title          string `json:"title,omitempty"`
}

// IsFolder reports whether n is a folder node.
func (n Node) IsFolder() bool { return n.Type == NodeFolder }

// PageInfo describes a document on disk without its content.
type PageInfo struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Breadcrumb is one segment of a page location.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Span is a highlighted range inside a snippet, counted in code points.
type Span struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// SearchResult is a single ranked search hit.
type SearchResult struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	Score      int    `json:"score"`
	Snippet    string `json:"snippet"`
	Highlights []Span `json:"highlights"`
}

// PageSummary is a document listed by the aggregate views (recent, untagged).
type PageSummary struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}
