package processor

import (
	"testing"
)

var documentCases = []struct {
	in, out string
}{
	{
		in:  `<html><body><p>Hello world</p></body></html>`,
		out: `<html><body><p><b>Hel</b>lo <b>wor</b>ld</p></body></html>`,
	},
	{
		in:  `<html><body class="calibre"><p>a cat</p></body></html>`,
		out: `<html><body class="calibre"><p><b>a</b> <b>c</b>at</p></body></html>`,
	},
	{
		in:  `<html><body><p>Tom &amp; Jerry&#8212;again</p></body></html>`,
		out: `<html><body><p><b>T</b>om &amp; <b>Jer</b>ry&#8212;<b>aga</b>in</p></body></html>`,
	},
	{
		in:  `<html><body><p>Hi, there!</p></body></html>`,
		out: `<html><body><p><b>H</b>i, <b>the</b>re!</p></body></html>`,
	},
	{
		in:  "<html><body>\n<div>\n  <p>Hi</p>\n</div>\n</body></html>",
		out: "<html><body>\n<div>\n  <p><b>H</b>i</p>\n</div>\n</body></html>",
	},
	{
		// text following tags which start with "<b" is left alone
		in:  `<html><body><p>one<br/>two</p></body></html>`,
		out: `<html><body><p><b>o</b>ne<br/>two</p></body></html>`,
	},
	{
		in:  `<html><body><p>Some <b>bold</b> text</p></body></html>`,
		out: `<html><body><p><b>So</b>me <b>bold</b> <b>te</b>xt</p></body></html>`,
	},
	{
		in:  `<html><head><title>Title</title></head><body><p>Привет</p></body></html>`,
		out: `<html><head><title>Title</title></head><body><p><b>При</b>вет</p></body></html>`,
	},
	{
		// no body - nothing to do
		in:  `<html><p>Hello</p></html>`,
		out: `<html><p>Hello</p></html>`,
	},
	{
		in:  `<html><body></body></html>`,
		out: `<html><body></body></html>`,
	},
}

func TestTransformDocumentApply(t *testing.T) {

	for i, c := range documentCases {
		res := transformDocument(c.in, MApply)
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i+1, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(documentCases))
}

func TestTransformDocumentRemove(t *testing.T) {

	for i, c := range documentCases {
		res := transformDocument(c.out, MRemove)
		if res != c.in {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i+1, c.in, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(documentCases))
}

func TestTransformDocumentRemoveExistingBold(t *testing.T) {

	cases := []struct {
		in, out string
	}{
		// single character in bold looks exactly like metaguided one letter word
		{`<html><body><p>a<b>b</b>c</p></body></html>`, `<html><body><p>abc</p></body></html>`},
		{`<html><body><p>x <b>y</b> z</p></body></html>`, `<html><body><p>x y z</p></body></html>`},
		// longer bold words not followed by word characters are kept
		{`<html><body><p>a <b>bold</b> c</p></body></html>`, `<html><body><p>a <b>bold</b> c</p></body></html>`},
		{`<html><body><p><b>two words</b></p></body></html>`, `<html><body><p><b>two words</b></p></body></html>`},
	}
	for i, c := range cases {
		res := transformDocument(c.in, MRemove)
		if res != c.out {
			t.Fatalf("BAD RESULT for case %d\nEXPECTED:\n[%s]\nGOT:\n[%s]", i+1, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}

func TestTransformDocumentRemoveOutsideBody(t *testing.T) {

	in := `<html><head><title><b>Hel</b>lo</title></head><body><p><b>Hel</b>lo</p></body></html>`
	out := `<html><head><title><b>Hel</b>lo</title></head><body><p>Hello</p></body></html>`

	if res := transformDocument(in, MRemove); res != out {
		t.Fatalf("BAD RESULT\nEXPECTED:\n[%s]\nGOT:\n[%s]", out, res)
	}
}

func TestClosesBoldTag(t *testing.T) {

	cases := []struct {
		body string
		pos  int
		out  bool
	}{
		{`<p>text`, 2, false},
		{`<b>text`, 2, true},
		{`<br/>text`, 4, true},
		{`<p>x</b>y`, 7, false},
		{`<p>x<blockquote>y`, 15, true},
	}
	for i, c := range cases {
		if c.body[c.pos] != '>' {
			t.Fatalf("BAD TEST for case %d", i+1)
		}
		if res := closesBoldTag(c.body, c.pos); res != c.out {
			t.Fatalf("BAD RESULT for case %d: expected %t, got %t", i+1, c.out, res)
		}
	}
	t.Logf("OK - %s: %d cases", t.Name(), len(cases))
}
