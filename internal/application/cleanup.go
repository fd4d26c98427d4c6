package application

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	boldPattern      = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicPattern    = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	bulletPattern    = regexp.MustCompile(`(?m)^([ \t]*)(?:\*|•)[ \t]+`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown strips the markdown a chat model tends to emit so answers
// read as plain text: bold and italic markers, headings, star bullets and
// runs of blank lines. A star touching a letter or digit on its outer side,
// as in 2*N, is arithmetic and stays.
func CleanMarkdown(text string) string {
	cleaned := boldPattern.ReplaceAllString(text, "$1")
	cleaned = bulletPattern.ReplaceAllString(cleaned, "$1- ")
	cleaned = stripItalics(cleaned)
	cleaned = headingPattern.ReplaceAllString(cleaned, "")
	cleaned = blankRunsPattern.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

func stripItalics(text string) string {
	matches := italicPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(before) || isWordRune(after) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(text[m[2]:m[3]])
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
