package search

import "unicode"

// lowerRunes lowercases rune by rune so offsets in the result match the input.
func lowerRunes(s []rune) []rune {
	out := make([]rune, len(s))
	for i, r := range s {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexFrom returns the first index of needle in hay at or after from, or -1.
func indexFrom(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// occurrences returns the start offsets of every non-overlapping occurrence of needle.
func occurrences(hay, needle []rune) []int {
	var out []int
	for i := indexFrom(hay, needle, 0); i >= 0; i = indexFrom(hay, needle, i+len(needle)) {
		out = append(out, i)
	}
	return out
}

func containsFold(value string, lowerNeedle []rune) (int, bool) {
	i := indexFrom(lowerRunes([]rune(value)), lowerNeedle, 0)
	return i, i >= 0
}
