// Package commands has top level command drivers.
package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"epubmg/processor"
	"epubmg/state"
)

// getPaths returns absolute source and destination paths from command arguments. When destination is
// absent and may be omitted, source is used (file is processed in place).
func getPaths(ctx *cli.Context, env *state.LocalEnv, dstRequired bool) (src, dst string, err error) {

	src = ctx.Args().Get(0)
	if len(src) == 0 {
		return "", "", errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", fmt.Errorf("normalizing source path failed: %w", err)
	}

	dst = ctx.Args().Get(1)
	if len(dst) == 0 {
		if dstRequired {
			return "", "", errors.New("no destination has been specified")
		}
		return src, src, nil
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", fmt.Errorf("normalizing destination path failed: %w", err)
	}
	if ctx.Args().Len() > 2 {
		env.Log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", ctx.Args().Slice()[2:]))
	}
	return src, dst, nil
}

// newProcessor prepares processor and reports selected mode.
func newProcessor(ctx *cli.Context, env *state.LocalEnv, opts ...processor.Option) (*processor.Processor, processor.Mode, error) {

	mode := processor.ModeFromFlag(ctx.Bool("remove"))
	p, err := processor.New(env, opts...)
	if err != nil {
		return nil, mode, err
	}
	return p, mode, nil
}
