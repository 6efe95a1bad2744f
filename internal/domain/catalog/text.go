package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases s and strips diacritics, so "Limón" and "LIMON" compare equal
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(strings.TrimSpace(stripped))
}

// ContainsFolded reports whether needle occurs in haystack ignoring case and accents
func ContainsFolded(haystack, needle string) bool {
	return strings.Contains(FoldText(haystack), FoldText(needle))
}

// NamePattern builds a coarse LIKE pattern for a text query. Letters that may
// carry an accent in stored names become single-character wildcards; the exact
// comparison is done afterwards with ContainsFolded.
func NamePattern(query string) string {
	folded := FoldText(query)
	if folded == "" {
		return ""
	}
	var b strings.Builder
	b.WriteByte('%')
	for _, r := range folded {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'n', 'c':
			b.WriteByte('_')
		case '%', '_':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('%')
	return b.String()
}
