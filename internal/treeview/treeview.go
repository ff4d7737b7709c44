// Package treeview derives sorted, filtered and annotated views of a page tree.
// Every function returns a fresh copy and leaves its input untouched.
package treeview

import (
	"path"
	"slices"
	"strings"

	"github.com/starford/nodepad/internal/markdown"
	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/tags"
)

// FilterByTags keeps pages whose indexed tags contain every required tag and
// folders that still hold at least one child afterwards. index maps page paths
// to normalized tags. An empty required list returns the tree unchanged.
func FilterByTags(nodes []models.Node, required []string, index map[string][]string) []models.Node {
	required = tags.NormalizeAll(required)
	if len(required) == 0 {
		return clone(nodes)
	}
	return filter(nodes, required, index)
}

func filter(nodes []models.Node, required []string, index map[string][]string) []models.Node {
	out := []models.Node{}
	for _, n := range nodes {
		if !n.IsFolder() {
			if tags.ContainsAll(index[n.Path], required) {
				out = append(out, n)
			}
			continue
		}
		kids := filter(n.Children, required, index)
		if len(kids) == 0 {
			continue
		}
		n.Children = kids
		out = append(out, n)
	}
	return out
}

// Sort orders every level by case-insensitive name, folders first when dirsFirst is set.
// Equal keys keep their original order.
func Sort(nodes []models.Node, dirsFirst bool) []models.Node {
	out := clone(nodes)
	sortLevel(out, dirsFirst)
	return out
}

func sortLevel(nodes []models.Node, dirsFirst bool) {
	slices.SortStableFunc(nodes, func(a, b models.Node) int {
		if dirsFirst && a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for i := range nodes {
		if nodes[i].IsFolder() {
			sortLevel(nodes[i].Children, dirsFirst)
		}
	}
}

// AttachCounts sets the direct and recursive page counts of every folder.
// The second result is the number of pages in the whole of nodes.
func AttachCounts(nodes []models.Node) ([]models.Node, int) {
	out := make([]models.Node, len(nodes))
	total := 0
	for i, n := range nodes {
		if !n.IsFolder() {
			total++
			out[i] = n
			continue
		}
		kids, sub := AttachCounts(n.Children)
		direct := 0
		for _, k := range kids {
			if !k.IsFolder() {
				direct++
			}
		}
		n.Children = kids
		n.FileCount = &direct
		n.TotalFileCount = &sub
		out[i] = n
		total += sub
	}
	return out, total
}

// ReadFunc returns the content of the page at a relative path.
type ReadFunc func(path string) ([]byte, error)

// AttachTitles sets the title of every page from its first heading.
// Pages that cannot be read fall back to their file stem.
func AttachTitles(nodes []models.Node, read ReadFunc) []models.Node {
	out := make([]models.Node, len(nodes))
	for i, n := range nodes {
		if n.IsFolder() {
			n.Children = AttachTitles(n.Children, read)
			out[i] = n
			continue
		}
		fallback := strings.TrimSuffix(n.Name, path.Ext(n.Name))
		content, err := read(n.Path)
		if err != nil {
			n.Title = markdown.ExtractTitle("", fallback)
		} else {
			n.Title = markdown.ExtractTitle(string(content), fallback)
		}
		out[i] = n
	}
	return out
}

func clone(nodes []models.Node) []models.Node {
	if nodes == nil {
		return nil
	}
	out := make([]models.Node, len(nodes))
	for i, n := range nodes {
		if n.Children != nil {
			n.Children = clone(n.Children)
		}
		out[i] = n
	}
	return out
}
