// Package texttospeech holds what is shared by speech output adapters.
package texttospeech

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxSpokenRunes bounds the length of a single utterance.
	MaxSpokenRunes = 1000

	CodeBlockPlaceholder = "Code block omitted."
	TruncatedSuffix      = "... (truncated)"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	markdownRe   = regexp.MustCompile(`[#*_~>]`)
	blankLinesRe = regexp.MustCompile(`\n{2,}`)
)

// Sanitize turns chat text into something worth reading aloud. Fenced code
// becomes a short placeholder, inline code and markdown markers are dropped,
// blank lines collapse and the result is cut to MaxSpokenRunes.
func Sanitize(text string) string {
	text = fencedCodeRe.ReplaceAllString(text, CodeBlockPlaceholder)
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = markdownRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n")

	if utf8.RuneCountInString(text) > MaxSpokenRunes {
		text = string([]rune(text)[:MaxSpokenRunes]) + TruncatedSuffix
	}
	return text
}
