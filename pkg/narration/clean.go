package narration

import (
	"regexp"
	"strings"
)

var (
	emphasisPattern    = regexp.MustCompile(`\*+`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	punctuationPattern = regexp.MustCompile(`\s+([.,!?])`)
)

// CleanScript normalizes generated narration text: strips markdown emphasis
// markers, collapses newlines and runs of whitespace to single spaces, and
// removes spaces before punctuation. All generation paths share this one
// normalization.
func CleanScript(text string) string {
	if text == "" {
		return ""
	}

	text = emphasisPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = punctuationPattern.ReplaceAllString(text, "$1")

	return strings.TrimSpace(text)
}
