package processor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	boldOpen  = "<b>"
	boldClose = "</b>"
)

// wordChars is Unicode aware equivalent of \w: letters, marks, decimal and letter numbers,
// connector punctuation and zero width joiners.
const wordChars = `\p{L}\p{M}\p{Nd}\p{Nl}\p{Pc}\x{200C}\x{200D}`

var (
	reWord       = regexp.MustCompile(`[` + wordChars + `]+`)
	reBoldedWord = regexp.MustCompile(`<b>([` + wordChars + `]+)</b>`)
)

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) == -1
}

// boldPrefixLen returns number of leading runes to mark in a word of given length.
func boldPrefixLen(length int) int {
	if length == 1 || length == 3 {
		return 1
	}
	return (length + 1) / 2
}

// BoldWord marks leading part of the word. Empty or whitespace only input is returned as is.
func BoldWord(word string) string {

	if isBlank(word) {
		return word
	}

	split := boldPrefixLen(utf8.RuneCountInString(word))

	// convert rune position to byte offset
	pos := 0
	for i := 0; i < split; i++ {
		_, size := utf8.DecodeRuneInString(word[pos:])
		pos += size
	}
	return boldOpen + word[:pos] + boldClose + word[pos:]
}

// UnboldWord removes bold markers added by BoldWord. Markers wrapping anything but word characters are kept.
func UnboldWord(word string) string {

	if isBlank(word) {
		return word
	}
	if !strings.Contains(word, boldOpen) {
		return word
	}
	return reBoldedWord.ReplaceAllString(word, "$1")
}
