package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"epubmg/commands"
	"epubmg/config"
	"epubmg/misc"
	"epubmg/reporter"
	"epubmg/state"
)

const (
	errPrefix = "\n*** ERROR ***\n\npreparing: "
	errCode   = 1
)

// profiles lists hidden profiling flags, only first one requested is used.
var profiles = []struct {
	flag string
	mode func(*profile.Profile)
}{
	{"cpuprofile", profile.CPUProfile},
	{"memprofile", profile.MemProfile},
	{"blkprofile", profile.BlockProfile},
	{"traceprofile", profile.TraceProfile},
	{"mutexprofile", profile.MutexProfile},
}

// runner keeps what has to be cleaned up after the program run.
type runner struct {
	log      *zap.Logger
	rpt      *reporter.Report
	restore  func()
	profiler interface{ Stop() }
	// errors are logged only after command set up logging
	logErrors bool
}

func version() string {
	return misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash()
}

func (r *runner) before(c *cli.Context) error {

	if c.NArg() == 0 {
		return nil
	}

	env := c.Generic(state.FlagName).(*state.LocalEnv)
	env.Debug = c.Bool("debug")

	var err error
	if c.Bool("report") {
		if env.Rpt, err = reporter.NewReporter(); err != nil {
			return cli.Exit(fmt.Errorf("%sunable to create report: %w", errPrefix, err), errCode)
		}
		r.rpt = env.Rpt
	}

	sources := c.StringSlice("config")
	if env.Cfg, err = config.BuildConfig(sources...); err != nil {
		return cli.Exit(fmt.Errorf("%sunable to build configuration: %w", errPrefix, err), errCode)
	}
	for i, fname := range sources {
		if fname != "-" && len(fname) > 0 {
			env.Rpt.Store(fmt.Sprintf("config/%d-%s", i, fname), fname)
		}
	}

	for _, p := range profiles {
		if path := c.String(p.flag); len(path) > 0 {
			r.profiler = profile.Start(p.mode, profile.ProfilePath(path))
			break
		}
	}
	return nil
}

func (r *runner) beforeCommand(c *cli.Context) error {

	env := c.Generic(state.FlagName).(*state.LocalEnv)

	log, err := env.Cfg.PrepareLog(env.Rpt)
	if err != nil {
		return cli.Exit(fmt.Errorf("%sunable to create logs: %w", errPrefix, err), errCode)
	}
	env.Log, r.log = log, log
	r.restore = zap.RedirectStdLog(log)
	r.logErrors = true

	log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version()))
	if len(c.StringSlice("config")) == 0 {
		log.Info("Using defaults (no configuration file)")
	}

	if data, err := env.Cfg.GetActualBytes(); err == nil {
		if err := env.Rpt.StoreData("config/actual.json", data); err != nil {
			log.Warn("Unable to store configuration in the report", zap.Error(err))
		}
	}
	return nil
}

func (r *runner) afterCommand(c *cli.Context) error {
	r.logErrors = false
	return nil
}

func (r *runner) handleError(c *cli.Context, err error) {

	if !r.logErrors {
		cli.HandleExitCoder(err)
		return
	}

	var exitErr cli.ExitCoder
	if !errors.As(err, &exitErr) {
		return
	}
	if msg := err.Error(); len(msg) > 0 {
		r.log.Error("Command ended with error", zap.Int("code", exitErr.ExitCode()), zap.String("error", msg))
	}
	cli.OsExiter(exitErr.ExitCode())
}

func (r *runner) after(c *cli.Context) error {

	if r.profiler != nil {
		r.profiler.Stop()
	}

	if r.log != nil {
		r.log.Debug("Program ended", zap.Strings("parsed args", c.Args().Slice()))
		r.restore()
		_ = r.log.Sync()
	}

	if r.rpt != nil {
		if err := r.rpt.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "\n*** ERROR ***\n\nunable to finalize report: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "\nDebug report has been created: %s\n", r.rpt.Name())
		}
	}
	return nil
}

// command wraps action so logging is ready before it runs.
func (r *runner) command(name, usage, args, help string, action cli.ActionFunc, flags ...cli.Flag) *cli.Command {

	cmd := &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: args,
		Action:    action,
		Flags:     flags,
		Before:    r.beforeCommand,
		After:     r.afterCommand,
	}
	if len(help) > 0 {
		cmd.CustomHelpTemplate = cli.CommandHelpTemplate + help
	}
	return cmd
}

func main() {

	// after hooks must run even when command fails
	cli.OsExiter = func(int) {}

	var r runner

	app := cli.NewApp()
	app.Name = "epubmg"
	app.Usage = "metaguiding (bionic reading) for EPUB, KEPUB and XHTML files"
	app.Version = version()
	app.Before = r.before
	app.After = r.after
	app.ExitErrHandler = r.handleError

	for _, p := range profiles {
		app.Flags = append(app.Flags, &cli.StringFlag{Name: p.flag, Hidden: true, Usage: "write profile to `PATH`"})
	}
	app.Flags = append(app.Flags,
		&cli.GenericFlag{Name: state.FlagName, Hidden: true, Usage: "--internal--", Value: state.NewLocalEnv()},
		&cli.StringSliceFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML, TOML, HCL or JSON), could be repeated. if FILE is \"-\" JSON will be expected from STDIN"},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes behavior of some commands to help debugging"},
		&cli.BoolFlag{Name: "report", Aliases: []string{"r"}, Usage: "create report archive with logs, configuration and results"},
	)

	remove := &cli.BoolFlag{Name: "remove", Usage: "remove metaguiding instead of applying it"}

	app.Commands = []*cli.Command{
		r.command("epub", "Metaguides EPUB or KEPUB file", "SOURCE [DESTINATION]", `SOURCE:
    path to .epub or .kepub file

DESTINATION:
    path to resulting file, if absent SOURCE will be replaced

Books which are already metaguided are copied unchanged.
`, commands.Epub, remove),

		r.command("xhtml", "Metaguides single XHTML or HTML document", "SOURCE [DESTINATION]", `SOURCE:
    path to .xhtml, .html or .htm file

DESTINATION:
    path to resulting file, if absent SOURCE will be replaced
`, commands.XHTML, remove),

		r.command("dir", "Metaguides all EPUB, KEPUB and XHTML files in directory (recursively)", "SOURCE DESTINATION", `SOURCE:
    path to directory, symbolic links are not followed

DESTINATION:
    path to output directory, will be created if necessary

Existing files in DESTINATION are never overwritten, such inputs are skipped.
Failure to process a single file does not stop processing.
`, commands.Dir, remove, &cli.BoolFlag{Name: "nodirs", Usage: "when producing output do not keep input directory structure"}),

		r.command("check", "Checks if EPUB or KEPUB file is metaguided", "SOURCE", "", commands.Check),

		r.command("dumpconfig", "Dumps active configuration (JSON)", "[DESTINATION]", `
DESTINATION:
    file name to write configuration to, if absent - STDOUT

With --debug merged configuration sources are dumped as they were read.
`, commands.DumpConfig),

		r.command("export", "Exports built-in resources for customization", "DESTINATION", `
DESTINATION:
    existing directory to export example configuration to
`, commands.ExportResources),
	}

	if err := app.Run(os.Args); err != nil {
		if r.log != nil {
			_ = r.log.Sync()
		}
		os.Exit(errCode)
	}
}
