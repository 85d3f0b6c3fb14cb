package processor

import (
	"regexp"
	"strings"
)

// NOTE: content documents are not parsed. Text is located by scanning raw markup of the body, which is
// fast and does not care how broken the document is. As a consequence ">" inside of attribute value
// is taken for the end of the tag.

var (
	reBody      = regexp.MustCompile(`(?s)<body[^>]*>(.*)</body>`)
	reEntityRef = regexp.MustCompile(`&[#a-zA-Z][a-zA-Z0-9]*;`)
	// Bolding produces either single marked character or marked prefix followed by the rest of the word.
	reBoldedText = regexp.MustCompile(`<b>[` + wordChars + `]</b>|<b>[` + wordChars + `]+</b>[` + wordChars + `]+`)
)

// transformDocument applies or removes metaguiding inside document body. Document without body is returned unchanged.
func transformDocument(html string, mode Mode) string {

	loc := reBody.FindStringSubmatchIndex(html)
	if loc == nil {
		return html
	}
	start, end := loc[2], loc[3]

	var body string
	switch mode {
	case MRemove:
		body = reBoldedText.ReplaceAllStringFunc(html[start:end], unboldTextPart)
	default:
		body = boldBody(html[start:end])
	}
	return html[:start] + body + html[end:]
}

// closesBoldTag reports if '>' at position pos ends a tag which was opened with "<b" - b, br, body, blockquote...
// Such '>' never starts a text run.
func closesBoldTag(body string, pos int) bool {
	prev := strings.LastIndexByte(body[:pos], '>')
	return strings.Contains(body[prev+1:pos], "<b")
}

// boldBody finds every text run (non blank text between '>' and '<') and bolds words in it.
func boldBody(body string) string {

	var (
		out  strings.Builder
		last int
		pos  int
	)

	for pos < len(body) {
		gt := strings.IndexByte(body[pos:], '>')
		if gt < 0 {
			break
		}
		gt += pos

		if closesBoldTag(body, gt) {
			pos = gt + 1
			continue
		}

		lt := strings.IndexByte(body[gt+1:], '<')
		if lt < 0 {
			break
		}
		lt += gt + 1

		text := body[gt+1 : lt]
		if isBlank(text) {
			pos = gt + 1
			continue
		}

		out.WriteString(body[last : gt+1])
		out.WriteString(boldTextNode(text))
		out.WriteByte('<')
		last, pos = lt+1, lt+1
	}
	if last == 0 {
		return body
	}
	out.WriteString(body[last:])
	return out.String()
}

// boldTextNode bolds words in a single text run leaving entity references intact.
func boldTextNode(text string) string {

	var out strings.Builder

	last := 0
	for _, loc := range reEntityRef.FindAllStringIndex(text, -1) {
		out.WriteString(reWord.ReplaceAllStringFunc(text[last:loc[0]], BoldWord))
		out.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	out.WriteString(reWord.ReplaceAllStringFunc(text[last:], BoldWord))
	return out.String()
}

func unboldTextPart(part string) string {
	if loc := reEntityRef.FindStringIndex(part); loc != nil && loc[0] == 0 {
		return part
	}
	return UnboldWord(part)
}
