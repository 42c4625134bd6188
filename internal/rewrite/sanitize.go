package rewrite

import (
	"regexp"
	"strings"
)

// Generation models like to wrap their answer in labels, quotes and
// translation disclaimers. Strip the decoration before validating.
var (
	labelRe         = regexp.MustCompile(`(?i)^(neutral( title)?|headline|title|rewrite)\s*[:：]\s*`)
	parenNoteRe     = regexp.MustCompile(`(?is)\((note|disclaimer)\b[^)]*\)`)
	bracketNoteRe   = regexp.MustCompile(`(?is)\[(note|disclaimer)\b[^\]]*\]`)
	noteLineRe      = regexp.MustCompile(`(?i)^(note|disclaimer)\s*[:：]`)
	wrappingQuotes  = "\"“”„‟'‘’"
	markdownEmphRe  = regexp.MustCompile(`[*_]{1,3}`)
)

// SanitizeGenerated reduces a raw generation response to the bare title text.
func SanitizeGenerated(s string) string {
	t := parenNoteRe.ReplaceAllString(s, " ")
	t = bracketNoteRe.ReplaceAllString(t, " ")

	var kept []string
	for _, line := range strings.Split(t, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || noteLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return ""
	}
	// A title is a single line; the first surviving one is the answer.
	out := labelRe.ReplaceAllString(kept[0], "")
	out = markdownEmphRe.ReplaceAllString(out, "")
	out = strings.Trim(out, wrappingQuotes)
	return collapse(out)
}
