package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Free-text fields (descriptions, notes, journal content) come straight from
// the browser and are rendered back there, so everything stored is reduced to
// plain text.
var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText drops every HTML tag and attribute before a string is stored.
func SanitizeText(s string) string {
	return strictHTMLPolicy.Sanitize(s)
}

// SanitizeForFormulaInjection guards the statement CSV export: a leading
// formula trigger gets a quote prefix so spreadsheets treat the cell as
// text. The trigger is detected on the trimmed string but the prefix goes on
// the original, preserving its formatting.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable drops control characters from pasted text, keeping tab,
// newline and carriage return. Journal entries take it on top of the HTML
// strip because their content is often pasted from other apps.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
