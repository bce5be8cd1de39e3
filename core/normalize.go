package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes characters and drops combining marks, so that
// "Peñalolén" and "Penalolen" normalize to the same key.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts raw user text into the canonical lookup form shared by
// every matching stage: lowercase, accents stripped, punctuation removed
// (hyphens survive only inside words), whitespace collapsed to single spaces.
//
// Normalize is pure and total; it never fails and is idempotent, so it can be
// applied to already-normalized text without changing it.
func Normalize(raw string) string {
	s, _, err := transform.String(stripAccents, raw)
	if err != nil {
		// Transform only errs on malformed UTF-8; fall back to the input.
		s = raw
	}
	s = strings.ToLower(s)

	in := []rune(s)
	out := make([]rune, 0, len(in))
	for i, r := range in {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			out = append(out, r)
		case r == '-' && i > 0 && i < len(in)-1 && isAlnum(in[i-1]) && isAlnum(in[i+1]):
			out = append(out, r)
		default:
			out = append(out, ' ')
		}
	}

	return strings.Join(strings.Fields(string(out)), " ")
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
