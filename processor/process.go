// Package processor does actual work.
package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"epubmg/state"
)

// Processor state. Processor does not keep anything between calls and could be used concurrently.
type Processor struct {
	// parameters translated to internal types
	fallback string
	workers  int
	fixZip   bool
	nodirs   bool
	// program environment
	env *state.LocalEnv
	log *zap.Logger
}

// Option changes processor defaults.
type Option func(*Processor)

// WithNoDirs makes directory processing put all results directly into destination directory.
func WithNoDirs(nodirs bool) Option {
	return func(p *Processor) {
		p.nodirs = nodirs
	}
}

// New creates metaguiding processor using program configuration and logger.
func New(env *state.LocalEnv, opts ...Option) (*Processor, error) {

	if env == nil || env.Cfg == nil {
		return nil, errors.New("processor requires configuration")
	}

	log := env.Logger()

	p := &Processor{
		fallback: env.Cfg.Metaguide.FallbackEncoding,
		workers:  env.Cfg.Metaguide.Workers,
		fixZip:   env.Cfg.Metaguide.FixZip,
		env:      env,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}

	// sanity checking
	if len(p.fallback) == 0 {
		p.fallback = encUTF8
	}
	if _, err := LookupEncoding(p.fallback); err != nil {
		log.Warn("Unknown fallback encoding, using utf-8", zap.String("encoding", p.fallback))
		p.fallback = encUTF8
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	return p, nil
}

// ensureInput checks that input file exists and has one of expected extensions.
func (p *Processor) ensureInput(fname string, exts []string) error {

	info, err := os.Stat(fname)
	if err != nil || !info.Mode().IsRegular() {
		p.log.Error("Input file does not exist", zap.String("file", fname))
		return fmt.Errorf("%w: input file '%s' does not exist", ErrValidation, fname)
	}
	if !hasExtension(fname, exts) {
		p.log.Error("Input file extension is not supported", zap.String("file", fname), zap.Strings("expected", exts))
		return fmt.Errorf("%w: input file '%s' extension is not in %v", ErrValidation, fname, exts)
	}
	return nil
}

// writeFile atomically replaces destination with data produced by write. Destination is not touched if write fails.
func writeFile(fname string, write func(f *os.File) error) (err error) {

	dir := filepath.Dir(fname)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(fname)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		return err
	}
	// in place rewrite keeps permissions
	perm := os.FileMode(0644)
	if info, serr := os.Stat(fname); serr == nil {
		perm = info.Mode().Perm()
	}
	if err = f.Chmod(perm); err != nil {
		return fmt.Errorf("unable to set permissions on %s: %w", fname, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("unable to write %s: %w", fname, err)
	}
	if err = os.Rename(f.Name(), fname); err != nil {
		return fmt.Errorf("unable to save %s: %w", fname, err)
	}
	return nil
}
