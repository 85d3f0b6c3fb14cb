// Package state defines program state shared by the application and its commands.
package state

import (
	"go.uber.org/zap"

	"epubmg/config"
	"epubmg/reporter"
)

// LocalEnv carries configuration, logger and debug report from application setup to the command being executed.
type LocalEnv struct {
	Debug bool

	Cfg *config.Config
	Log *zap.Logger
	Rpt *reporter.Report
}

// NewLocalEnv creates empty LocalEnv, it is filled by application Before hooks.
func NewLocalEnv() *LocalEnv {
	return &LocalEnv{}
}

// Logger never returns nil, so library code could log before (or without) logging being set up.
func (e *LocalEnv) Logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// urfave/cli does not allow to pass values from application to commands, so LocalEnv travels as a value
// of hidden GenericFlag.
const (
	FlagName = "$-localenv-$"
)

// Set implements cli.Generic, value is never set from command line.
func (e *LocalEnv) Set(value string) error {
	panic("localenv value should never be set directly")
}

// String implements cli.Generic
func (e *LocalEnv) String() string {
	return "local-env"
}
