package processor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func writeTree(t *testing.T, root string, files map[string][]byte) {

	t.Helper()

	for name, data := range files {
		fname := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(fname, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMetaguideDir(t *testing.T) {

	p := newTestProcessor(t)

	src, dst := t.TempDir(), t.TempDir()

	doc := []byte(`<html><body><p>Hello</p></body></html>`)
	writeTree(t, src, map[string][]byte{
		"books/one.epub":      makeBook(t, bookFiles),
		"books/deep/two.epub": makeBook(t, bookFiles),
		"page.xhtml":          doc,
		"books/existing.html": doc,
		"broken.epub":         []byte("not a zip"),
		"notes.txt":           []byte("notes"),
	})
	existing := []byte("keep me")
	writeTree(t, dst, map[string][]byte{"books/existing.html": existing})

	stats, err := p.MetaguideDir(src, dst, MApply)
	if err != nil {
		t.Fatalf("Unable to process directory: %v", err)
	}
	expected := DirStats{Processed: 3, Skipped: 1, Failed: 1}
	if stats != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n%s\nGOT:\n%s", spew.Sdump(expected), spew.Sdump(stats))
	}

	for _, name := range []string{"books/one.epub", "books/deep/two.epub"} {
		if marked, err := p.IsFileMetaguided(filepath.Join(dst, filepath.FromSlash(name))); err != nil || !marked {
			t.Fatalf("BAD RESULT for %s: %t, %v", name, marked, err)
		}
	}
	if data, err := os.ReadFile(filepath.Join(dst, "page.xhtml")); err != nil || string(data) != `<html><body><p><b>Hel</b>lo</p></body></html>` {
		t.Fatalf("BAD RESULT for page.xhtml: [%s], %v", data, err)
	}
	if data, err := os.ReadFile(filepath.Join(dst, "books", "existing.html")); err != nil || string(data) != string(existing) {
		t.Fatalf("Existing file has been overwritten: [%s], %v", data, err)
	}
	for _, name := range []string{"notes.txt", "broken.epub"} {
		if _, err := os.Stat(filepath.Join(dst, name)); !os.IsNotExist(err) {
			t.Fatalf("Unexpected output file %s", name)
		}
	}
}

func TestMetaguideDirNoDirs(t *testing.T) {

	p := newTestProcessor(t, WithNoDirs(true))

	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "new", "output")

	doc := []byte(`<html><body><p>Hello</p></body></html>`)
	writeTree(t, src, map[string][]byte{
		"a/page.xhtml": doc,
		"b/page.xhtml": doc,
		"c/book.epub":  makeBook(t, bookFiles),
	})

	stats, err := p.MetaguideDir(src, dst, MApply)
	if err != nil {
		t.Fatalf("Unable to process directory: %v", err)
	}
	// second page.xhtml would overwrite the first one
	expected := DirStats{Processed: 2, Skipped: 1}
	if stats != expected {
		t.Fatalf("BAD RESULT\nEXPECTED:\n%s\nGOT:\n%s", spew.Sdump(expected), spew.Sdump(stats))
	}

	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatalf("Unable to read output directory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("BAD output directory content: %s", spew.Sdump(entries))
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("Unexpected directory in output: %s", e.Name())
		}
	}
}

func TestMetaguideDirBadInput(t *testing.T) {

	p := newTestProcessor(t)

	dir := t.TempDir()
	fname := filepath.Join(dir, "file.xhtml")
	if err := os.WriteFile(fname, []byte("<html/>"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, src := range []string{fname, filepath.Join(dir, "missing")} {
		if _, err := p.MetaguideDir(src, t.TempDir(), MApply); !errors.Is(err, ErrValidation) {
			t.Fatalf("Expected validation error for %s, got: %v", src, err)
		}
	}
}
