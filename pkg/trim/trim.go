// Package trim removes trailing words from a message before it is parsed.
// Some channels append disclaimers to every signal.
package trim

import (
	"unicode"
	"unicode/utf8"
)

type Policy struct {
	// DropLastWords is the number of trailing words to drop, 0 disables trimming
	DropLastWords int
}

// Apply returns the kept text and the dropped words. Messages with no more
// words than DropLastWords are returned untouched. The kept text preserves
// its original layout.
func (p Policy) Apply(text string) (string, string) {
	if p.DropLastWords <= 0 {
		return text, ""
	}
	starts := wordStarts(text)
	if len(starts) <= p.DropLastWords {
		return text, ""
	}
	cut := starts[len(starts)-p.DropLastWords]
	kept := trimRightSpace(text[:cut])
	return kept, trimRightSpace(text[cut:])
}

func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
	}
	return starts
}

func trimRightSpace(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if !unicode.IsSpace(r) {
			break
		}
		s = s[:len(s)-size]
	}
	return s
}
