//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// colorOutput reports if escape sequences could be used on stream.
func colorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd())) && os.Getenv("TERM") != "dumb"
}
