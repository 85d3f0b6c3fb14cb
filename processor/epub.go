package processor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// openArchive reads whole input into memory and opens it as zip archive.
func openArchive(r io.Reader) (*fixzip.Reader, error) {

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read EPUB: %v", ErrFormat, err)
	}
	if !filetype.Is(data, "zip") {
		return nil, fmt.Errorf("%w: input is not a zip archive", ErrFormat)
	}
	zr, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open EPUB: %v", ErrFormat, err)
	}
	return zr, nil
}

// readMembers loads every archive entry in original order.
func (p *Processor) readMembers(zr *fixzip.Reader) ([]*Member, error) {

	members := make([]*Member, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: unable to open %s: %v", ErrFormat, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: unable to read %s: %v", ErrFormat, f.Name, err)
		}
		m := NewMember(f.Name, data)
		m.file = f
		members = append(members, m)
	}
	p.log.Debug("Read files from EPUB", zap.Int("count", len(members)))
	return members, nil
}

// metaguideMembers transforms eligible members concurrently. Members do not share anything so order does not matter.
func (p *Processor) metaguideMembers(members []*Member, mode Mode) error {

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, m := range members {
		g.Go(func() error {
			return m.Metaguide(p, mode)
		})
	}
	return g.Wait()
}

// writeMembers writes members to the output archive in order. Members which were not changed are copied as is,
// without recompression.
func (p *Processor) writeMembers(zw *fixzip.Writer, members []*Member) error {

	t := time.Now()
	for _, m := range members {
		if m.file != nil && !m.Transformed {
			if err := zw.CopyFile(m.file); err != nil {
				return fmt.Errorf("unable to copy %s: %w", m.Name, err)
			}
			continue
		}

		hdr := &fixzip.FileHeader{Name: m.Name, Method: fixzip.Deflate, Modified: t}
		if m.file != nil {
			if m.file.Method == fixzip.Store {
				hdr.Method = fixzip.Store
			}
			hdr.Modified = m.file.Modified
		}
		p.log.Debug("Writing file", zap.Stringer("file", m))
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("unable to create %s: %w", m.Name, err)
		}
		if _, err = w.Write(m.Content); err != nil {
			return fmt.Errorf("unable to write %s: %w", m.Name, err)
		}
	}
	return nil
}

// removeDataDescriptors copies every entry of the finished archive clearing data descriptor flag, some readers
// do not like them.
func removeDataDescriptors(data []byte, zw *fixzip.Writer) error {

	zr, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("unable to reopen EPUB: %w", err)
	}
	for _, f := range zr.File {
		f.Flags &= ^fixzip.FlagDataDescriptor
		if err := zw.CopyFile(f); err != nil {
			return fmt.Errorf("unable to copy %s: %w", f.Name, err)
		}
	}
	return nil
}

// MetaguideEPUB reads EPUB from r, applies or removes metaguiding and writes resulting EPUB to w.
// Archive which already has marker is copied unchanged when metaguiding is applied.
func (p *Processor) MetaguideEPUB(r io.Reader, w io.Writer, mode Mode) error {

	p.log.Debug("Processing EPUB", zap.Stringer("mode", mode))

	zr, err := openArchive(r)
	if err != nil {
		return err
	}
	members, err := p.readMembers(zr)
	if err != nil {
		return err
	}

	zw := fixzip.NewWriter(w)

	if marked, _ := p.findMarker(members, mode); marked {
		p.log.Debug("Copying files while preserving structure")
		for _, f := range zr.File {
			if err := zw.CopyFile(f); err != nil {
				return fmt.Errorf("unable to copy %s: %w", f.Name, err)
			}
		}
		return zw.Close()
	}

	if err := p.metaguideMembers(members, mode); err != nil {
		return err
	}

	if mode == MRemove {
		kept := members[:0]
		for _, m := range members {
			if m.Name != MarkerName {
				kept = append(kept, m)
			}
		}
		members = kept
	} else {
		p.log.Debug("Adding marker file")
		members = append(members, NewMember(MarkerName, p.markerContent()))
	}

	if !p.fixZip {
		if err := p.writeMembers(zw, members); err != nil {
			return err
		}
		return zw.Close()
	}

	var buf bytes.Buffer
	tmp := fixzip.NewWriter(&buf)
	if err := p.writeMembers(tmp, members); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to finalize EPUB: %w", err)
	}
	if err := removeDataDescriptors(buf.Bytes(), zw); err != nil {
		return err
	}
	return zw.Close()
}

// MetaguideEPUBFile processes EPUB file src and stores result in dst. Destination is replaced only when
// processing succeeds, so src and dst could be the same file.
func (p *Processor) MetaguideEPUBFile(src, dst string, mode Mode) error {

	p.log.Debug("Processing file", zap.String("from", src), zap.String("to", dst))
	defer func(start time.Time) {
		p.log.Debug("Processing file done", zap.String("from", src), zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := p.ensureInput(src, epubExtensions); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", src, err)
	}

	err = writeFile(dst, func(f *os.File) error {
		return p.MetaguideEPUB(bytes.NewReader(data), f, mode)
	})
	if err != nil {
		return err
	}
	p.env.Rpt.Store("results/"+fileKey(dst), dst)
	return nil
}

// IsMetaguided checks if EPUB read from r has marker.
func (p *Processor) IsMetaguided(r io.Reader) (bool, error) {

	zr, err := openArchive(r)
	if err != nil {
		return false, err
	}
	members, err := p.readMembers(zr)
	if err != nil {
		return false, err
	}
	marked, _ := p.findMarker(members, MApply)
	return marked, nil
}

// IsFileMetaguided checks if EPUB file has marker.
func (p *Processor) IsFileMetaguided(fname string) (bool, error) {

	if err := p.ensureInput(fname, epubExtensions); err != nil {
		return false, err
	}
	f, err := os.Open(fname)
	if err != nil {
		return false, fmt.Errorf("unable to open %s: %w", fname, err)
	}
	defer f.Close()

	return p.IsMetaguided(f)
}
