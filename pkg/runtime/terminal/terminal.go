package terminal

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/de-tools/report-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/report-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/report-atlas/pkg/services/source"
)

// CLI represents the command-line interface
type CLI struct {
	env      *commands.Env
	reporter *export.Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Sources source.Registry
	Output  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Sources == nil {
		opts.Sources = source.NewDefaultRegistry()
	}

	cli := &CLI{
		env:      &commands.Env{Sources: opts.Sources},
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// ExecuteContext runs the CLI with ctx, which carries the logger.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args for the next Execute call.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Multi-dimensional report builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultProfiles := ".reportcfg"
	if home, err := os.UserHomeDir(); err == nil {
		defaultProfiles = filepath.Join(home, ".reportcfg")
	}

	cmd.PersistentFlags().StringVarP(&cli.env.ConfigPath, "config", "c", "report-atlas.yaml",
		"Path to the report definitions file")
	cmd.PersistentFlags().StringVar(&cli.env.ProfilesPath, "profiles", defaultProfiles,
		"Path to the source profiles file (default is $HOME/.reportcfg)")

	cmd.AddCommand(commands.NewRunCmd(cli.env, cli.reporter))
	cmd.AddCommand(commands.NewIngestCmd(cli.env))
	cmd.AddCommand(commands.NewSourcesCmd(cli.env))
	cmd.AddCommand(commands.NewDefinitionsCmd(cli.env))

	return cmd
}
