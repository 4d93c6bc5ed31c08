package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/isolate/cli/cmd"
	"github.com/ardnew/isolate/pkg"
)

// CLI is the top-level command-line interface for isolate.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Bindings []string `help:"Bindings file(s), YAML or JSON, or '-' for stdin" short:"b" type:"existingfile"`
	Receiver string   `help:"Receiver file, YAML or JSON, or '-' for stdin"     short:"r" type:"existingfile"`
	Builtins bool     `default:"true" help:"Include the builtin vocabulary" negatable:""`

	Eval    cmd.Eval    `cmd:"" default:"withargs" help:"Evaluate expressions"`
	Repl    cmd.Repl    `cmd:""                    help:"Start an interactive session"`
	Names   cmd.Names   `cmd:""                    help:"List binding names"`
	Version cmd.Version `cmd:""                    help:"Print version"`
}

// Run executes the isolate CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	return run(ctx, exit, configPath(configBase), args, nil)
}

// run is [Run] with the config file path and additional kong options made
// explicit.
func run(
	ctx context.Context,
	exit func(code int),
	configFile string,
	args []string,
	opts []kong.Option,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Configure the logger before parsing so that flag position does not
	// matter and parse errors are rendered as requested.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		append([]kong.Option{
			kong.Name(pkg.Name),
			kong.Description(pkg.Description),
			kong.UsageOnError(),
			kong.Exit(exit),
			kong.ExplicitGroups(
				[]kong.Group{cli.Log.group(), cli.Pprof.group()},
			),
			kong.BindSingletonProvider(func() context.Context {
				return ctx
			}),
			kong.ConfigureHelp(
				kong.HelpOptions{
					Compact:             true,
					Summary:             true,
					NoExpandSubcommands: true,
				}),
			kong.Configuration(resolve(ctx), configFile),
			cli.Log.vars().CloneWith(cli.Pprof.vars()),
		}, opts...)...,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSession(ctx, cmd.Session{
		Sources:  cli.Bindings,
		Receiver: cli.Receiver,
		Builtins: cli.Builtins,
		CacheDir: cacheDir(),
	})

	return ktx.Run()
}
