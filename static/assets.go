// Package static keeps resources built into the program.
package static

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed configuration.toml
var content embed.FS

// Names returns names of all built-in resources.
func Names() ([]string, error) {

	var names []string
	err := fs.WalkDir(content, ".", func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			names = append(names, path)
		}
		return err
	})
	return names, err
}

// Read returns content of built-in resource.
func Read(name string) ([]byte, error) {
	return content.ReadFile(name)
}

// Export writes built-in resource into dir keeping its relative path.
func Export(dir, name string) error {

	data, err := content.ReadFile(name)
	if err != nil {
		return err
	}
	fname := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return err
	}
	return os.WriteFile(fname, data, 0644)
}
