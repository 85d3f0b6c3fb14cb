package processor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DirStats has results of directory processing.
type DirStats struct {
	Processed int
	Skipped   int
	Failed    int
}

type dirJob struct {
	src, dst string
	epub     bool
}

// collectDirJobs walks source tree (symbolic links are not followed) and decides what to do with every eligible file.
// Files which would overwrite anything are skipped.
func (p *Processor) collectDirJobs(src, dst string) ([]dirJob, int, error) {

	var (
		jobs    []dirJob
		skipped int
		claimed = make(map[string]string)
	)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		isEpub := hasExtension(path, epubExtensions)
		if !isEpub && !hasExtension(path, xhtmlExtensions) {
			p.log.Debug("Skipping file, not recognized as EPUB or XHTML", zap.String("file", path))
			return nil
		}

		var out string
		if p.nodirs {
			out = filepath.Join(dst, filepath.Base(path))
		} else {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			out = filepath.Join(dst, rel)
		}

		if prev, ok := claimed[out]; ok {
			p.log.Warn("Skipping file, destination is already used", zap.String("file", path), zap.String("by", prev), zap.String("to", out))
			skipped++
			return nil
		}
		if _, err := os.Stat(out); err == nil {
			p.log.Warn("Skipping file, destination already exists", zap.String("file", path), zap.String("to", out))
			skipped++
			return nil
		}
		claimed[out] = path
		jobs = append(jobs, dirJob{src: path, dst: out, epub: isEpub})
		return nil
	})
	return jobs, skipped, err
}

// MetaguideDir processes all EPUB and XHTML files under src directory putting results into dst. Failure to process
// a single file is logged and counted, it does not stop processing of the rest.
func (p *Processor) MetaguideDir(src, dst string, mode Mode) (DirStats, error) {

	var stats DirStats

	p.log.Info("Processing files (recursively)", zap.String("from", src), zap.String("to", dst), zap.Stringer("mode", mode))
	defer func(start time.Time) {
		p.log.Info("Processing files done",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("errors", stats.Failed))
	}(time.Now())

	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return stats, fmt.Errorf("%w: input directory '%s' does not exist", ErrValidation, src)
	}
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		p.log.Info("Creating output directory", zap.String("dir", dst))
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return stats, fmt.Errorf("unable to create output directory: %w", err)
	}

	jobs, skipped, err := p.collectDirJobs(src, dst)
	if err != nil {
		return stats, fmt.Errorf("unable to walk input directory: %w", err)
	}
	stats.Skipped = skipped

	var processed, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, job := range jobs {
		g.Go(func() error {
			p.log.Debug("Processing", zap.String("from", job.src), zap.String("to", job.dst))
			var err error
			if job.epub {
				err = p.MetaguideEPUBFile(job.src, job.dst, mode)
			} else {
				err = p.MetaguideXHTMLFile(job.src, job.dst, mode)
			}
			if err != nil {
				failed.Add(1)
				p.log.Error("Unable to process file", zap.String("file", job.src), zap.Error(err))
				// keep going
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.Processed = int(processed.Load())
	stats.Failed = int(failed.Load())
	return stats, nil
}
