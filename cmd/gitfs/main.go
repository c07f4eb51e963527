// gitfs reads files straight from git repositories.
//
// Every command takes names of the form
//
//	[<scheme>://]<host>/<repo-path>.git/<branch>/<file>
//
// clones the repository into the data directory on first use and reads the
// working copy afterwards. Configuration comes from GITFS_* environment
// variables and --set key=value flags; see the config package.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/pflag"

	"github.com/jmgilman/gitfs/config"
	"github.com/jmgilman/gitfs/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globals are the flags every command accepts.
type globals struct {
	sets     []string
	logLevel string
	help     bool
}

func (g *globals) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringArrayVar(&g.sets, "set", nil, "set a configuration key, key=value (repeatable)")
	flagSet.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.BoolVarP(&g.help, "help", "h", false, "show help")
}

// command is one subcommand.
type command struct {
	name    string
	usage   string
	summary string
	flags   func(*pflag.FlagSet)
	run     func(ctx context.Context, env *environment, args []string) error
}

// environment is what a command runs with once flags are parsed.
type environment struct {
	settings config.Settings
	stdout   io.Writer
	logger   *slog.Logger
}

func commands() []*command {
	return []*command{catCommand(), lsCommand(), statCommand(), mountCommand(), serveCommand()}
}

// run parses args and runs one command. A nil env reads the process
// environment.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, env envconfig.Lookuper) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		return nil
	}

	var cmd *command
	for _, c := range commands() {
		if c.name == args[0] {
			cmd = c
		}
	}
	if cmd == nil {
		printUsage(stderr)
		return errors.Newf(errors.CodeInvalidInput, "unknown command %q", args[0])
	}

	var g globals
	flagSet := pflag.NewFlagSet("gitfs "+cmd.name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	g.addFlags(flagSet)
	if cmd.flags != nil {
		cmd.flags(flagSet)
	}
	if err := flagSet.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return errors.Wrap(err, errors.CodeInvalidInput, "invalid flags")
	}
	if g.help {
		fmt.Fprintf(stderr, "Usage:\n  gitfs %s\n\n%s\n\nFlags:\n", cmd.usage, cmd.summary)
		flagSet.PrintDefaults()
		return nil
	}

	level, err := parseLevel(g.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	ctx = clog.WithLogger(ctx, clog.New(logger.Handler()))

	props, err := config.ParseSet(g.sets)
	if err != nil {
		return err
	}
	settings, err := config.Load(ctx, env, props)
	if err != nil {
		return err
	}
	clog.FromContext(ctx).Debugf("Settings: %+v", settings.Redacted())

	return cmd.run(ctx, &environment{
		settings: settings,
		stdout:   stdout,
		logger:   logger,
	}, flagSet.Args())
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidInput, "invalid log level %q", s)
	}
	return level, nil
}

func printUsage(w io.Writer) {
	var b strings.Builder
	b.WriteString("gitfs reads files straight from git repositories.\n\nUsage:\n")
	for _, c := range commands() {
		fmt.Fprintf(&b, "  gitfs %-28s %s\n", c.usage, c.summary)
	}
	b.WriteString("\nGlobal flags:\n")
	b.WriteString("  --set key=value    configuration key (repeatable): pull.lazy, pull.eager,\n")
	b.WriteString("                     dismount.seconds, dismount.delete, datadir, auth.user,\n")
	b.WriteString("                     auth.pass, refresh.interval, backend, scheme\n")
	b.WriteString("  --log-level level  debug, info, warn or error (default info)\n")
	fmt.Fprint(w, b.String())
}
