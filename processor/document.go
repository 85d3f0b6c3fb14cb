package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MetaguideXHTML applies or removes metaguiding in a single XHTML document. Result has the same encoding as input.
func (p *Processor) MetaguideXHTML(doc []byte, mode Mode) ([]byte, error) {

	name, err := p.resolveEncoding(doc)
	if err != nil {
		return nil, err
	}
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}

	html, err := decodeDocument(doc, enc, name)
	if err != nil {
		return nil, err
	}
	return encodeDocument(transformDocument(html, mode), enc, name)
}

// MetaguideXHTMLFile processes XHTML file src and stores result in dst. Destination is replaced only when
// processing succeeds.
func (p *Processor) MetaguideXHTMLFile(src, dst string, mode Mode) error {

	p.log.Debug("Processing file", zap.String("from", src), zap.String("to", dst))
	defer func(start time.Time) {
		p.log.Debug("Processing file done", zap.String("from", src), zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := p.ensureInput(src, xhtmlExtensions); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", src, err)
	}

	out, err := p.MetaguideXHTML(data, mode)
	if err != nil {
		return err
	}
	err = writeFile(dst, func(f *os.File) error {
		_, err := f.Write(out)
		return err
	})
	if err != nil {
		return err
	}
	p.env.Rpt.Store("results/"+fileKey(dst), dst)
	return nil
}

// fileKey makes report name out of file path.
func fileKey(fname string) string {
	if abs, err := filepath.Abs(fname); err == nil {
		fname = abs
	}
	return strings.TrimLeft(filepath.ToSlash(strings.TrimPrefix(fname, filepath.VolumeName(fname))), "/")
}
