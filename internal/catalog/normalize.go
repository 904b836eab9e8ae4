package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// normalizeTitle trims and NFC-normalizes a display title.
func normalizeTitle(title string) string {
	return norm.NFC.String(strings.Join(strings.Fields(title), " "))
}

// titleKey folds case and strips combining marks so "Café" and "cafe"
// compare equal.
func titleKey(title string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		normalizeTitle(title),
	)
	if err != nil {
		stripped = normalizeTitle(title)
	}
	return folder.String(stripped)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring LIKE pattern for a search query.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(titleKey(query)) + "%"
}
