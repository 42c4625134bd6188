package rewrite

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is what the engine always returns; there is no error path.
type Result struct {
	NeutralTitle string
	Mode         string
	Flags        []string
}

const (
	ModeRules     = "rules"
	ModeGenerated = "generated"
)

// Flags attached by the pipeline.
const (
	FlagEmpty                 = "empty"
	FlagVague                 = "vague"
	FlagTrimmed               = "trimmed"
	FlagLowConfidence         = "rewrite_low_confidence"
	FlagEmptyFallback         = "rewrite_empty_fallback"
	FlagPossibleHallucination = "possible_hallucination"
)

// DefaultTitleMaxRunes is the hard cap on a neutral title.
const DefaultTitleMaxRunes = 90

// Burmese clickbait and sensational terms removed verbatim from titles.
var clickbaitTerms = []string{
	"အရေးပေါ်",
	"အံ့အားသင့်ဖွယ်",
	"ထိတ်လန့်ဖွယ်",
	"ကြီးမားတဲ့",
	"မယုံနိုင်စရာ",
	"အထူး",
	"အလွန်",
	"တုန်လှုပ်",
	"မကြာခင်",
	"ရုတ်တရက်",
	"ဒေါသထွက်",
	"တုန့်ပြန်",
	"ဟုန်းဟုန်း",
	"ပြင်းပြင်းထန်ထန်",
	"ကြောက်စရာ",
	"အလွန်ကြောက်မက်ဖွယ်",
	"ထူးခြား",
}

// Framing that promises information without carrying it.
var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile("ဘာဖြစ်ခဲ့သလဲ"),
	regexp.MustCompile("သိရ"),
	regexp.MustCompile("အကြောင်းရင်း"),
	regexp.MustCompile("အရေးကြီး"),
	regexp.MustCompile("နောက်ဆုံး"),
	regexp.MustCompile("မည်သို့"),
}

var (
	attributionCueRe  = regexp.MustCompile("(အဆိုအရ|ပြောကြား|ဆိုကြ|ဆိုသည်|ကြေညာ|သတင်းအရ)")
	attributionLeadRe = regexp.MustCompile("^(.{0,20})(အဆိုအရ|သတင်းအရ)")
	exclaimRe         = regexp.MustCompile("[!！]+")
	questionRe        = regexp.MustCompile("[?？]+")
	spaceRe           = regexp.MustCompile(`\s+`)
)

// attributionPrefix is the generic neutral phrase ("according to reports").
const attributionPrefix = "သတင်းအရ "

func stripClickbait(s string) string {
	t := s
	for _, term := range clickbaitTerms {
		t = strings.ReplaceAll(t, term, "")
	}
	return collapse(t)
}

func softenPunctuation(s string) string {
	t := exclaimRe.ReplaceAllString(s, "")
	t = questionRe.ReplaceAllString(t, "")
	return collapse(t)
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// addAttributionIfObvious prepends a generic attribution phrase only when the
// original title itself carries an attribution cue; attribution is never
// invented where the original had none.
func addAttributionIfObvious(original, cleaned string) string {
	if !attributionCueRe.MatchString(original) {
		return cleaned
	}
	if attributionLeadRe.MatchString(cleaned) {
		return cleaned
	}
	return attributionPrefix + cleaned
}

func capRunes(s string, maxRunes int) (string, bool) {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes-2])) + "…", true
}

func countContentRunes(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsSpace(r) || r == '…' {
			continue
		}
		n++
	}
	return n
}

func ensureNonEmpty(original, candidate string) string {
	if c := strings.TrimSpace(candidate); c != "" {
		return c
	}
	// Minimal neutralization without inventing facts.
	t := softenPunctuation(stripClickbait(strings.TrimSpace(original)))
	if t != "" {
		return t
	}
	return strings.TrimSpace(original)
}

// Rules runs the rule-based neutralization pipeline. It never fails and never
// returns an empty title for a non-empty input.
func Rules(originalTitle string, maxRunes int) Result {
	// Caps below 10 runes leave no room for the ellipsis arithmetic.
	if maxRunes < 10 {
		maxRunes = DefaultTitleMaxRunes
	}
	flags := newFlagSet()
	before := strings.TrimSpace(originalTitle)
	if before == "" {
		return Result{NeutralTitle: "", Mode: ModeRules, Flags: flags.add(FlagEmpty).list()}
	}

	t := stripClickbait(before)
	t = softenPunctuation(t)

	// Informational only: the text is not altered further for vagueness.
	vague := utf8.RuneCountInString(t) < 10
	for _, re := range vaguePatterns {
		if re.MatchString(before) {
			vague = true
			break
		}
	}
	if vague {
		flags.add(FlagVague)
		t = collapse(t)
	}

	t = addAttributionIfObvious(before, t)

	if capped, trimmed := capRunes(t, maxRunes); trimmed {
		t = capped
		flags.add(FlagTrimmed)
	}

	// If stripping removed most of the content, trust the original instead.
	minContent := max(5, countContentRunes(before)*3/10)
	if countContentRunes(t) < minContent {
		t, _ = capRunes(before, maxRunes)
		flags.add(FlagLowConfidence)
	}

	t = ensureNonEmpty(before, t)

	return Result{NeutralTitle: t, Mode: ModeRules, Flags: flags.list()}
}
