// Package mytext canonicalizes Burmese title text for fuzzy comparison.
package mytext

import (
	"regexp"
	"strings"
)

// Common grammatical particles that add noise to similarity comparisons.
var fillerWords = map[string]struct{}{
	"သည်": {}, "က": {}, "ကို": {}, "မှာ": {}, "နှင့်": {}, "နဲ့": {}, "၏": {},
	"အပေါ်": {}, "အတွက်": {}, "ပြော": {}, "ဆို": {}, "ဟု": {}, "ကြောင်း": {},
	"ဖြစ်": {}, "များ": {}, "တစ်": {}, "အဖြစ်": {}, "နောက်": {}, "အပြီး": {}, "ရ": {},
}

var (
	quoteRe      = regexp.MustCompile("[“”„‟\"]")
	punctRe      = regexp.MustCompile("[၊။·•…]")
	bracketRe    = regexp.MustCompile(`[()（）\[\]{}<>]`)
	zeroWidthRe  = regexp.MustCompile("[\u200B-\u200D\uFEFF]")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a title for dedupe and rule matching: quotes are
// dropped, Burmese sentence punctuation and brackets become spaces, zero-width
// characters are removed and filler particles are filtered out token-wise.
// Empty input yields empty output.
func Normalize(input string) string {
	t := quoteRe.ReplaceAllString(input, "")
	t = punctRe.ReplaceAllString(t, " ")
	t = bracketRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
	t = zeroWidthRe.ReplaceAllString(t, "")

	parts := strings.Fields(t)
	filtered := parts[:0]
	for _, w := range parts {
		if _, skip := fillerWords[w]; skip {
			continue
		}
		filtered = append(filtered, w)
	}
	return strings.TrimSpace(strings.Join(filtered, " "))
}

// ContainsMyanmarScript reports whether s contains any character from the
// Myanmar block (U+1000–U+109F) or its extended blocks. Used to filter
// non-Burmese link text during scraping.
func ContainsMyanmarScript(s string) bool {
	for _, r := range s {
		if (r >= 0x1000 && r <= 0x109F) || (r >= 0xA9E0 && r <= 0xA9FF) {
			return true
		}
	}
	return false
}
