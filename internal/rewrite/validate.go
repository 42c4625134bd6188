package rewrite

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var latinWordRe = regexp.MustCompile(`[a-z]{2,}`)

// ValidateNoNewEntities is the hallucination guard for generated rewrites.
// It is deliberately conservative: a candidate is rejected when it introduces
// any digit absent from the original, any Latin-script word absent from the
// original, or when too many of its tokens do not occur in the original.
func ValidateNoNewEntities(original, candidate string) bool {
	o := strings.ToLower(original)
	r := strings.ToLower(candidate)

	// New digits usually mean invented dates or counts.
	oDigits := map[rune]struct{}{}
	for _, c := range o {
		if unicode.IsDigit(c) {
			oDigits[c] = struct{}{}
		}
	}
	for _, c := range r {
		if unicode.IsDigit(c) {
			if _, ok := oDigits[c]; !ok {
				return false
			}
		}
	}

	// New Latin words usually mean invented names or places.
	oLatin := map[string]struct{}{}
	for _, w := range latinWordRe.FindAllString(o, -1) {
		oLatin[w] = struct{}{}
	}
	for _, w := range latinWordRe.FindAllString(r, -1) {
		if _, ok := oLatin[w]; !ok {
			return false
		}
	}

	// Token overlap heuristic for the Burmese text itself: allow a small
	// amount of paraphrase, nothing more.
	oTokens := map[string]struct{}{}
	for _, t := range strings.Fields(o) {
		oTokens[t] = struct{}{}
	}
	rTokens := strings.Fields(r)
	if len(rTokens) == 0 {
		return true
	}

	missing := 0
	for _, t := range rTokens {
		if utf8.RuneCountInString(t) <= 1 {
			continue
		}
		if _, ok := oTokens[t]; !ok {
			missing++
		}
	}
	return missing <= max(2, len(rTokens)/4)
}
