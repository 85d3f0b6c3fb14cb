package commands

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"epubmg/state"
)

// DumpConfig is "dumpconfig" command body. With --debug merged configuration sources are dumped instead of
// values program actually uses.
func DumpConfig(ctx *cli.Context) error {

	const (
		errPrefix = "dumpconfig: "
		errCode   = 1
	)

	env := ctx.Generic(state.FlagName).(*state.LocalEnv)

	dump := env.Cfg.GetActualBytes
	if env.Debug {
		dump = env.Cfg.GetBytes
	}
	data, err := dump()
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to get configuration: %w", errPrefix, err), errCode)
	}

	if fname := ctx.Args().Get(0); len(fname) > 0 {
		env.Log.Info("Dumping configuration", zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	} else {
		_, err = ctx.App.Writer.Write(data)
	}
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to write configuration: %w", errPrefix, err), errCode)
	}
	return nil
}
