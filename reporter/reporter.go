// Package reporter collects debug information about program run into a single archive.
package reporter

import (
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	fixzip "github.com/hidez8891/zip"
)

const reportName = "epubmg-report.zip"

// Report remembers files (logs, configuration, results) to be archived when program ends. Nil Report is valid
// and ignores everything, so callers do not have to check if report was requested. Safe for concurrent use.
type Report struct {
	mu      sync.Mutex
	entries map[string]string
	temps   []string
	out     *os.File
}

// NewReporter creates empty report in current directory, or in temporary one when current is not writable.
func NewReporter() (*Report, error) {

	out, err := os.Create(reportName)
	if err != nil {
		if out, err = os.CreateTemp("", "epubmg-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{entries: make(map[string]string), out: out}, nil
}

// Name returns absolute path of the report archive.
func (r *Report) Name() string {

	if r == nil || r.out == nil {
		return ""
	}
	name := r.out.Name()
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}
	return name
}

// Store registers file or directory path to be put in the archive under name. Paths are read at Close.
func (r *Report) Store(name, path string) {

	if r == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[name]; ok && prev != path {
		// two different things under the same name means program logic is broken
		panic(fmt.Sprintf("report entry [%s] is already taken by %s, unable to store %s", name, prev, path))
	}
	r.entries[name] = path
}

// StoreData puts data in the archive under name.
func (r *Report) StoreData(name string, data []byte) error {

	if r == nil {
		return nil
	}

	f, err := os.CreateTemp("", "epubmg-report-data.*")
	if err != nil {
		return fmt.Errorf("unable to store report data: %w", err)
	}
	r.mu.Lock()
	r.temps = append(r.temps, f.Name())
	r.mu.Unlock()

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("unable to store report data: %w", err)
	}
	r.Store(name, f.Name())
	return nil
}

// Close writes report archive. Temporary files created by StoreData are removed.
func (r *Report) Close() error {

	if r == nil || r.out == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.write()
	if cerr := r.out.Close(); err == nil {
		err = cerr
	}
	for _, t := range r.temps {
		os.Remove(t)
	}
	return err
}

// write stores MANIFEST (name to original path) followed by every registered entry which still exists.
func (r *Report) write() error {

	arc := fixzip.NewWriter(r.out)

	names := slices.Sorted(maps.Keys(r.entries))

	var manifest strings.Builder
	for _, name := range names {
		fmt.Fprintf(&manifest, "%s\t%s\n", name, r.entries[name])
	}
	if err := addEntry(arc, "MANIFEST", time.Now(), strings.NewReader(manifest.String())); err != nil {
		return err
	}

	for _, name := range names {
		if err := addPath(arc, name, r.entries[name]); err != nil {
			return fmt.Errorf("unable to add %s to report: %w", name, err)
		}
	}
	return arc.Close()
}

// addPath adds single file or directory tree, absent paths are ignored.
func addPath(arc *fixzip.Writer, name, path string) error {

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		return addFile(arc, name, path, info)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return addFile(arc, name+"/"+filepath.ToSlash(rel), p, info)
	})
}

func addFile(arc *fixzip.Writer, name, path string, info fs.FileInfo) error {

	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return addEntry(arc, name, info.ModTime(), f)
}

func addEntry(arc *fixzip.Writer, name string, t time.Time, src io.Reader) error {

	w, err := arc.CreateHeader(&fixzip.FileHeader{Name: name, Method: fixzip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
