package textproc

import (
	"regexp"
	"strings"
)

var (
	lineBreaksRe = regexp.MustCompile(`\r\n|\r|\n|\t`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)

	curlyQuotesRe = regexp.MustCompile("[“”‘’‚„]")
	dashesRe      = regexp.MustCompile("[–—]")
	ellipsisRe    = regexp.MustCompile("…")

	// ASCII plus hiragana, katakana and the CJK unified ideograph block.
	// Everything else is treated as mojibake and dropped.
	allowedRe = regexp.MustCompile(`[^\x00-\x7F\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}]`)
)

// CleanText normalizes raw article text before chunking: line breaks and
// tabs become spaces, runs of whitespace collapse, HTML-like tags are
// stripped, typographic quotes/dashes/ellipses map to ASCII, and characters
// outside the allow-list are removed.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = lineBreaksRe.ReplaceAllString(text, " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = htmlTagRe.ReplaceAllString(text, "")

	text = curlyQuotesRe.ReplaceAllString(text, `"`)
	text = dashesRe.ReplaceAllString(text, "-")
	text = ellipsisRe.ReplaceAllString(text, "...")

	text = allowedRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
