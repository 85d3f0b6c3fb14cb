package processor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

const encUTF8 = "utf-8"

var reXMLEncoding = regexp.MustCompile(`encoding=(?:"([a-zA-Z][a-zA-Z0-9-]{0,38}[a-zA-Z0-9])"|'([a-zA-Z][a-zA-Z0-9-]{0,38}[a-zA-Z0-9])')`)

// Longer marks first - UTF-16LE mark is a prefix of UTF-32LE one.
var boms = []struct {
	mark []byte
	name string
}{
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, "utf-32be"},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, "utf-32le"},
	{[]byte{0xEF, 0xBB, 0xBF}, encUTF8},
	{[]byte{0xFE, 0xFF}, "utf-16be"},
	{[]byte{0xFF, 0xFE}, "utf-16le"},
}

// encodingFromXMLHeader returns encoding specified in XML declaration. Document which starts with
// declaration must have it closed.
func encodingFromXMLHeader(doc []byte) (string, error) {

	if !bytes.HasPrefix(doc, []byte("<?xml ")) {
		return "", nil
	}

	end := bytes.Index(doc, []byte("?>"))
	if end < 0 {
		return "", fmt.Errorf("%w: could not find end of XML declaration", ErrValidation)
	}

	m := reXMLEncoding.FindSubmatch(doc[:end+1])
	switch {
	case m == nil:
		// declaration without encoding, keep looking
		return "", nil
	case len(m[1]) > 0:
		return string(m[1]), nil
	default:
		return string(m[2]), nil
	}
}

func encodingFromBOM(doc []byte) string {
	for _, b := range boms {
		if bytes.HasPrefix(doc, b.mark) {
			return b.name
		}
	}
	return ""
}

// encodingFromXMLParser asks XML parser which encoding it would use. Well formed document without declared
// encoding is UTF-8.
func encodingFromXMLParser(doc []byte) (string, error) {

	root, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", err
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.DeclarationNode {
			continue
		}
		if enc := n.SelectAttr("encoding"); len(enc) > 0 {
			return enc, nil
		}
		break
	}
	return encUTF8, nil
}

// resolveEncoding detects character encoding of XHTML document.
func (p *Processor) resolveEncoding(doc []byte) (string, error) {

	enc, err := encodingFromXMLHeader(doc)
	if err != nil {
		return "", err
	}
	if len(enc) > 0 {
		return enc, nil
	}

	p.log.Debug("Unable to detect document encoding from XML declaration, checking BOM")
	if enc = encodingFromBOM(doc); len(enc) > 0 {
		return enc, nil
	}

	p.log.Debug("Unable to detect document encoding from BOM, parsing XML")
	if enc, err = encodingFromXMLParser(doc); err != nil {
		p.log.Debug("Unable to parse document as XML", zap.Error(err))
	} else if len(enc) > 0 {
		return enc, nil
	}

	p.log.Debug("Using fallback encoding", zap.String("encoding", p.fallback))
	return p.fallback, nil
}

// LookupEncoding returns codec for encoding name. UTF-8 is handled without conversion and returns nil.
// Byte order marks are kept as part of decoded text so documents could be encoded back unchanged.
func LookupEncoding(name string) (encoding.Encoding, error) {

	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-") {
	case "utf-8", "utf8":
		return nil, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "utf-16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), nil
	case "utf-32be":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), nil
	case "utf-32":
		return utf32.UTF32(utf32.BigEndian, utf32.UseBOM), nil
	}

	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, _ := charset.Lookup(name); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: unsupported encoding %q", ErrFormat, name)
}

// decodeDocument converts document to UTF-8 string.
func decodeDocument(doc []byte, enc encoding.Encoding, name string) (string, error) {

	if enc == nil {
		if !utf8.Valid(doc) {
			return "", fmt.Errorf("%w: document is not valid %s", ErrFormat, name)
		}
		return string(doc), nil
	}
	out, err := enc.NewDecoder().Bytes(doc)
	if err != nil {
		return "", fmt.Errorf("%w: unable to decode document from %s: %v", ErrFormat, name, err)
	}
	return string(out), nil
}

// encodeDocument converts UTF-8 string back to original document encoding.
func encodeDocument(text string, enc encoding.Encoding, name string) ([]byte, error) {

	if enc == nil {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to encode document to %s: %v", ErrFormat, name, err)
	}
	return []byte(out), nil
}
