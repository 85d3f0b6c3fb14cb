package static

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestExport(t *testing.T) {

	names, err := Names()
	if err != nil {
		t.Fatalf("Unable to list resources: %v", err)
	}
	if len(names) != 1 || names[0] != "configuration.toml" {
		t.Fatalf("BAD resources: %v", names)
	}

	dir := t.TempDir()
	for _, name := range names {
		if err := Export(dir, name); err != nil {
			t.Fatalf("Unable to export %s: %v", name, err)
		}
		expected, err := Read(name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || !bytes.Equal(expected, got) {
			t.Fatalf("BAD exported content for %s: %v", name, err)
		}
	}
	if _, err := Read("missing"); err == nil {
		t.Fatal("Missing resource could be read")
	}
}
