package commands

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"epubmg/processor"
	"epubmg/state"
)

type fileFunc func(p *processor.Processor, src, dst string, mode processor.Mode) error

// processFile is common body of single file commands.
func processFile(ctx *cli.Context, name string, fn fileFunc) error {

	errPrefix := name + ": "
	const errCode = 1

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src, dst, err := getPaths(ctx, env, false)
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	p, mode, err := newProcessor(ctx, env)
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	env.Log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("mode", mode))
	defer func(start time.Time) {
		env.Log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := fn(p, src, dst, mode); err != nil {
		return cli.Exit(fmt.Errorf("%sunable to process %s: %w", errPrefix, src, err), errCode)
	}
	return nil
}

// Epub is "epub" command body.
func Epub(ctx *cli.Context) error {
	return processFile(ctx, "epub", (*processor.Processor).MetaguideEPUBFile)
}

// XHTML is "xhtml" command body.
func XHTML(ctx *cli.Context) error {
	return processFile(ctx, "xhtml", (*processor.Processor).MetaguideXHTMLFile)
}

// Dir is "dir" command body.
func Dir(ctx *cli.Context) error {

	const (
		errPrefix = "dir: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src, dst, err := getPaths(ctx, env, true)
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	p, mode, err := newProcessor(ctx, env, processor.WithNoDirs(ctx.Bool("nodirs")))
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	stats, err := p.MetaguideDir(src, dst, mode)
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to process directory: %w", errPrefix, err), errCode)
	}
	if stats.Failed > 0 {
		return cli.Exit(fmt.Errorf("%s%d file(s) could not be processed", errPrefix, stats.Failed), errCode)
	}
	return nil
}

// Check is "check" command body.
func Check(ctx *cli.Context) error {

	const (
		errPrefix = "check: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	src, _, err := getPaths(ctx, env, false)
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	p, _, err := newProcessor(ctx, env)
	if err != nil {
		return cli.Exit(fmt.Errorf("%s%w", errPrefix, err), errCode)
	}

	marked, err := p.IsFileMetaguided(src)
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to check %s: %w", errPrefix, src, err), errCode)
	}
	if marked {
		fmt.Fprintf(ctx.App.Writer, "%s: metaguided\n", src)
	} else {
		fmt.Fprintf(ctx.App.Writer, "%s: not metaguided\n", src)
	}
	return nil
}
