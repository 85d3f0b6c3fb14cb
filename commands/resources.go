package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"epubmg/state"
	"epubmg/static"
)

// ExportResources is "export" command body.
func ExportResources(ctx *cli.Context) error {

	const (
		errPrefix = "export: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	dir := ctx.Args().Get(0)
	if len(dir) == 0 {
		return cli.Exit(errors.New(errPrefix+"destination directory has not been specified"), errCode)
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return cli.Exit(errors.New(errPrefix+"destination directory does not exist"), errCode)
	case err != nil:
		return cli.Exit(fmt.Errorf("%sunable to access destination directory: %w", errPrefix, err), errCode)
	case !info.IsDir():
		return cli.Exit(errors.New(errPrefix+"destination is not a directory"), errCode)
	}

	names, err := static.Names()
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to list resources: %w", errPrefix, err), errCode)
	}
	for _, name := range names {
		if err := static.Export(dir, name); err != nil {
			return cli.Exit(fmt.Errorf("%sunable to export %s: %w", errPrefix, name, err), errCode)
		}
		env.Log.Info("Resource exported", zap.String("name", name), zap.String("to", dir))
	}
	return nil
}
