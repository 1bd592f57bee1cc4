package loyalty

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CLIENT SEARCH - Accent and case insensitive name matching
// =============================================================================

// FoldName reduces a display name to its search key: accents removed, case
// folded, inner whitespace collapsed. "  José  MARÍA " -> "jose maria".
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// MatchesClient reports whether c matches a search query, either by folded
// name substring or by normalized id prefix. A blank query matches everyone.
func MatchesClient(c Client, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	if strings.Contains(FoldName(c.Name), FoldName(q)) {
		return true
	}
	upper := strings.ToUpper(q)
	return strings.HasPrefix(string(c.ID), upper) || strings.HasPrefix(string(c.ID), NormalizeID(q))
}
