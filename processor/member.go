package processor

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
)

var (
	xhtmlExtensions = []string{".xhtml", ".html", ".htm"}
	epubExtensions  = []string{".epub", ".kepub"}
	tocFileNames    = []string{"nav.xhtml", "nav.html", "toc.xhtml", "toc.html"}
)

// Member is a single file inside of EPUB archive. Classification is done once on creation, transformation
// state is changed when member content is metaguided.
type Member struct {
	Name        string
	Content     []byte
	Kind        Kind
	IsTOC       bool
	Transformed bool

	// zip entry member was read from, nil for newly created members
	file *fixzip.File
}

// NewMember creates archive member and classifies it by name.
func NewMember(name string, content []byte) *Member {

	m := &Member{Name: name, Content: content}

	// some books have xml files with html extension, we do not care
	if hasExtension(name, xhtmlExtensions) {
		m.Kind = KindXHTML
	}
	base := strings.ToLower(path.Base(filepath.ToSlash(name)))
	for _, n := range tocFileNames {
		if base == n {
			m.IsTOC = true
			break
		}
	}
	return m
}

func (m *Member) String() string {
	return fmt.Sprintf("%s (%d bytes)", m.Name, len(m.Content))
}

// Metaguide transforms member content in place when member is eligible.
func (m *Member) Metaguide(p *Processor, mode Mode) error {

	switch {
	case mode == MApply && m.Transformed:
		p.log.Warn("File already metaguided, skipping", zap.String("file", m.Name))
	case m.IsTOC:
		p.log.Debug("Skipping nav/toc file", zap.String("file", m.Name))
	case m.Kind == KindXHTML:
		p.log.Debug("Metaguiding file", zap.String("file", m.Name), zap.Stringer("mode", mode))
		content, err := p.MetaguideXHTML(m.Content, mode)
		if err != nil {
			return fmt.Errorf("unable to process %s: %w", m.Name, err)
		}
		m.Content = content
		m.Transformed = true
	default:
		p.log.Debug("Skipping file", zap.String("file", m.Name))
	}
	return nil
}

func hasExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
