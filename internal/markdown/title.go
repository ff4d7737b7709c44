// Package markdown extracts titles from, seeds, and renders Markdown pages.
package markdown

import (
	"strings"
)

// Untitled is returned by ExtractTitle when neither a heading nor a fallback exists.
const Untitled = "Untitled"

// ExtractTitle returns the text of the first "# " heading in content. Without one it
// returns fallback, or Untitled when fallback is empty.
func ExtractTitle(content, fallback string) string {
	lines := strings.FieldsFunc(content, func(r rune) bool { return r == '\n' || r == '\r' })
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		}
	}
	if fallback == "" {
		return Untitled
	}
	return fallback
}

// DefaultSeedTitle is used for new pages whose file stem is empty.
const DefaultSeedTitle = "New page"

const seedBody = "Start writing here..."

// Seed returns the initial content of a newly created page.
func Seed(title string) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultSeedTitle
	}
	return "# " + title + "\n\n" + seedBody + "\n"
}
