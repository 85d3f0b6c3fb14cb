package processor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMetaguideXHTMLFileKeepsPermissions(t *testing.T) {

	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not supported")
	}

	p := newTestProcessor(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "page.xhtml")
	if err := os.WriteFile(src, []byte(`<html><body><p>Hello</p></body></html>`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(src, 0600); err != nil {
		t.Fatal(err)
	}

	// in place
	if err := p.MetaguideXHTMLFile(src, src, MApply); err != nil {
		t.Fatalf("Unable to process file: %v", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("BAD permissions after in place processing: %v", info.Mode().Perm())
	}
	if data, err := os.ReadFile(src); err != nil || string(data) != `<html><body><p><b>Hel</b>lo</p></body></html>` {
		t.Fatalf("BAD RESULT: [%s], %v", data, err)
	}

	// new file
	dst := filepath.Join(dir, "out", "page.xhtml")
	if err := p.MetaguideXHTMLFile(src, dst, MRemove); err != nil {
		t.Fatalf("Unable to process file: %v", err)
	}
	if info, err := os.Stat(dst); err != nil || info.Mode().Perm() != 0644 {
		t.Fatalf("BAD permissions for new file: %v, %v", info, err)
	}
}
