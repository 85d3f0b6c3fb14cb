package processor

import (
	"strings"
)

//go:generate stringer -type=Mode -linecomment

// Mode specifies direction of metaguiding transformation.
type Mode int

// Supported modes
const (
	MApply          Mode = iota // apply
	MRemove                     // remove
	UnsupportedMode             //
)

// ParseModeString converts string to enum value. Case insensitive.
func ParseModeString(mode string) Mode {

	for i := MApply; i < UnsupportedMode; i++ {
		if strings.EqualFold(i.String(), mode) {
			return i
		}
	}
	return UnsupportedMode
}

// ModeFromFlag is a convenience for command line processing.
func ModeFromFlag(remove bool) Mode {
	if remove {
		return MRemove
	}
	return MApply
}

// Kind classifies archive member.
type Kind int

// Member kinds
const (
	KindOther Kind = iota // other
	KindXHTML             // xhtml
)

func (k Kind) String() string {
	if k == KindXHTML {
		return "xhtml"
	}
	return "other"
}
