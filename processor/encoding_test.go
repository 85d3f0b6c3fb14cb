package processor

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestResolveEncoding(t *testing.T) {

	p := newTestProcessor(t)

	cases := []struct {
		doc string
		enc string
	}{
		{`<?xml version="1.0" encoding="windows-1251"?><html/>`, "windows-1251"},
		{`<?xml version='1.0' encoding='UTF-8'?><html/>`, "UTF-8"},
		{`<?xml version="1.0" encoding="ISO-8859-1" standalone="yes"?><html/>`, "ISO-8859-1"},
		{"\xEF\xBB\xBF<html/>", "utf-8"},
		{"\xFE\xFF\x00<\x00h", "utf-16be"},
		{"\xFF\xFE<\x00h\x00", "utf-16le"},
		{"\x00\x00\xFE\xFF\x00\x00\x00<", "utf-32be"},
		{"\xFF\xFE\x00\x00<\x00\x00\x00", "utf-32le"},
		// declaration without encoding
		{`<?xml version="1.0"?><html><body/></html>`, "utf-8"},
		{`<html><body><p>Hello</p></body></html>`, "utf-8"},
	}
	for i, c := range cases {
		enc, err := p.resolveEncoding([]byte(c.doc))
		if err != nil {
			t.Fatalf("Unexpected error for case %d: %v", i+1, err)
		}
		if enc != c.enc {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i+1, c.enc, enc)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestResolveEncodingFallback(t *testing.T) {

	p := newTestProcessor(t)
	p.fallback = "windows-1252"

	enc, err := p.resolveEncoding([]byte(`<p>unclosed`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if enc != "windows-1252" {
		t.Fatalf("BAD RESULT: expected fallback encoding, got [%s]", enc)
	}
}

func TestResolveEncodingUnterminatedDeclaration(t *testing.T) {

	p := newTestProcessor(t)

	_, err := p.resolveEncoding([]byte(`<?xml version="1.0" encoding="utf-8"<html/>`))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error, got: %v", err)
	}
}

func TestLookupEncoding(t *testing.T) {

	for _, name := range []string{"utf-8", "UTF-8", "utf8"} {
		if enc, err := LookupEncoding(name); err != nil || enc != nil {
			t.Fatalf("BAD RESULT for %s: %v, %v", name, enc, err)
		}
	}
	for _, name := range []string{"utf-16", "UTF-16LE", "utf-16be", "utf-32", "utf_32le", "windows-1251", "ISO-8859-1", "koi8-r", "latin1"} {
		if enc, err := LookupEncoding(name); err != nil || enc == nil {
			t.Fatalf("BAD RESULT for %s: %v, %v", name, enc, err)
		}
	}
	if _, err := LookupEncoding("no-such-encoding"); !errors.Is(err, ErrFormat) {
		t.Fatalf("Expected format error, got: %v", err)
	}
}

func TestMetaguideXHTMLEncodings(t *testing.T) {

	p := newTestProcessor(t)

	// UTF-16 with BOM, byte order mark survives
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	in, err := utf16.Bytes([]byte("\uFEFF<html><body><p>Hello</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	expected, err := utf16.Bytes([]byte("\uFEFF<html><body><p><b>Hel</b>lo</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.MetaguideXHTML(in, MApply)
	if err != nil {
		t.Fatalf("Unable to process UTF-16 document: %v", err)
	}
	if string(out) != string(expected) {
		t.Fatalf("BAD RESULT for UTF-16\nEXPECTED:\n[% x]\nGOT:\n[% x]", expected, out)
	}

	// single byte encoding from declaration
	cp1251 := charmap.Windows1251.NewEncoder()
	in, err = cp1251.Bytes([]byte(`<?xml version="1.0" encoding="windows-1251"?><html><body><p>Привет</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	expected, err = cp1251.Bytes([]byte(`<?xml version="1.0" encoding="windows-1251"?><html><body><p><b>При</b>вет</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	out, err = p.MetaguideXHTML(in, MApply)
	if err != nil {
		t.Fatalf("Unable to process windows-1251 document: %v", err)
	}
	if string(out) != string(expected) {
		t.Fatalf("BAD RESULT for windows-1251\nEXPECTED:\n[% x]\nGOT:\n[% x]", expected, out)
	}

	// and back
	out, err = p.MetaguideXHTML(out, MRemove)
	if err != nil {
		t.Fatalf("Unable to remove metaguiding from windows-1251 document: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("BAD RESULT for windows-1251 removal\nEXPECTED:\n[% x]\nGOT:\n[% x]", in, out)
	}
}

func TestMetaguideXHTMLInvalid(t *testing.T) {

	p := newTestProcessor(t)

	if _, err := p.MetaguideXHTML([]byte("<?xml version=\"1.0\"?><html><body><p>\xFF\xFE\xFD</p></body></html>"), MApply); !errors.Is(err, ErrFormat) {
		t.Fatalf("Expected format error for invalid UTF-8, got: %v", err)
	}
	if _, err := p.MetaguideXHTML([]byte(`<?xml version="1.0" encoding="x-unknown-enc"?><html/>`), MApply); !errors.Is(err, ErrFormat) {
		t.Fatalf("Expected format error for unknown encoding, got: %v", err)
	}
}
