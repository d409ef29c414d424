package records

import (
	"regexp"
	"strings"
)

var (
	leadingBy     = regexp.MustCompile(`^(?i:by)\b[\s:]*`)
	authorSplit   = regexp.MustCompile(`,|\band\b`)
	trailingPunct = regexp.MustCompile(`[\s,;:]+$`)
)

// NormalizeAuthors cleans a list of author strings. Each entry is stripped of
// a leading "By", split on commas and the word "and", trimmed of trailing
// punctuation, and deduplicated by exact match in first-seen order. The
// result is never nil and normalizing it again returns the same list.
func NormalizeAuthors(authors []string) []string {
	out := []string{}
	seen := make(map[string]struct{})

	for _, raw := range authors {
		for _, part := range authorSplit.Split(stripBy(CleanText(raw)), -1) {
			name := cleanAuthor(part)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}

	return out
}

func cleanAuthor(s string) string {
	s = stripBy(CleanText(s))
	s = trailingPunct.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// stripBy removes any number of leading "By" tokens.
func stripBy(s string) string {
	for {
		next := leadingBy.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}
