package validate

import "strings"

// accentFold maps common accented Latin runes to their base letter.
// Kept as an explicit table: the fold must be cheap, total and
// predictable for OCR-damaged legal text in Romance languages.
var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ç': 'c', 'ñ': 'n', 'ý': 'y',
}

// ocrFold maps characters OCR engines routinely confuse onto one
// canonical form, so "c0ntrat0" and "contrato" normalize identically.
// Applied only in OCR-tolerant mode.
var ocrFold = map[rune]rune{
	'0': 'o',
	'1': 'l',
	'5': 's',
	'8': 'b',
	'|': 'l',
	'!': 'l',
	'$': 's',
}

// Normalize prepares text for fuzzy comparison: casefold, accent strip,
// whitespace collapse, and (in OCR-tolerant mode) OCR confusion folding.
// Both sides of every comparison go through the same fold, so the
// mapping direction does not matter.
func Normalize(s string, ocrTolerant bool) string {
	lower := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if base, ok := accentFold[r]; ok {
			r = base
		}
		if ocrTolerant {
			if base, ok := ocrFold[r]; ok {
				r = base
			}
		}
		b.WriteRune(r)
	}

	// Collapse all whitespace runs to single spaces and trim.
	return strings.Join(strings.Fields(b.String()), " ")
}
