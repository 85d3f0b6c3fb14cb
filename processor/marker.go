package processor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
	"unicode/utf8"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"epubmg/misc"
)

// MarkerName is the name of archive member which signals that archive has been metaguided.
const MarkerName = "intellireading.metaguide"

const markerTemplate = `version: {{ .Version }}
process: {{ .Process | default "unknown" }}
call_graph: {{ if .Frames }}{{ join " -> " .Frames }}{{ else }}unknown{{ end }}`

var markerTmpl = template.Must(template.New("marker").Funcs(sprig.TxtFuncMap()).Parse(markerTemplate))

// markerValues holds variables available to marker template.
type markerValues struct {
	Version string
	Process string
	Frames  []string
}

// findMarker looks for marker member. Archive is considered already metaguided only when marker is present and
// we are not removing metaguiding - removal is always attempted.
func (p *Processor) findMarker(members []*Member, mode Mode) (bool, *Member) {

	var marker *Member
	for _, m := range members {
		if m.Name == MarkerName {
			marker = m
			break
		}
	}

	marked := mode != MRemove && marker != nil
	if marked {
		if utf8.Valid(marker.Content) {
			p.log.Debug("EPUB already metaguided", zap.ByteString("marker", marker.Content))
		} else {
			p.log.Debug("EPUB already metaguided, marker content is not readable")
		}
	}
	return marked, marker
}

// callGraph returns stack of the calling goroutine, outermost call first, skipping skip innermost frames.
func callGraph(skip int) []string {

	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		f, more := frames.Next()
		if len(f.Function) > 0 {
			stack = append(stack, fmt.Sprintf("%s:%s", filepath.Base(f.File), filepath.Base(f.Function)))
		}
		if !more {
			break
		}
	}
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// markerContent generates content of the marker member. It never fails, if anything goes wrong minimal
// content is produced.
func (p *Processor) markerContent() (content []byte) {

	version := misc.GetVersion()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Unable to generate marker content", zap.Any("panic", r))
			content = fmt.Appendf(nil, "version: %s\nprocess: unknown\ncall_graph: error", version)
		}
	}()

	values := markerValues{Version: version}
	if len(os.Args) > 0 {
		values.Process = filepath.Base(os.Args[0])
	} else {
		p.log.Warn("Unable to determine process name, using 'unknown'")
	}
	// skip markerContent itself
	values.Frames = callGraph(1)

	var buf bytes.Buffer
	if err := markerTmpl.Execute(&buf, values); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
