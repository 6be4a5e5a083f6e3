package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/exitcode"
)

// Command annotations read by the root command before a command runs.
const (
	// annotationRoute names the console route a command opens. The
	// navigation guard must allow it and the session must hold the
	// route's capability.
	annotationRoute = "chiwen.route"
	// annotationSetup limits what is built before the command runs:
	// "none" skips everything, "config" loads configuration only.
	annotationSetup = "chiwen.setup"
)

const (
	setupNone   = "none"
	setupConfig = "config"
)

// NewRootCommand builds the chiwen command tree.
func NewRootCommand() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "chiwen",
		Short: "Terminal client for the chiwen asset console",
		Long: `chiwen signs in to a chiwen console server and manages its assets
from the terminal.

The session is kept between runs in ~/.chiwen/credentials.json and restored
on startup. Commands that open a console screen are checked against the
same navigation guard and permission table as the interactive console.

` + exitCodesHelp(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default is $HOME/.chiwen/config.yaml)")
	flags.StringVar(&a.opts.server, "server", "", "console server URL (overrides api.base_url)")
	flags.StringVarP(&a.opts.output, "output", "o", "", "output format: text, json or yaml (overrides output.format)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newAuthCmd(a),
		newAssetsCmd(a),
		newConsoleCmd(a),
		newConfigCmd(a),
		newDoctorCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func exitCodesHelp() string {
	var b strings.Builder
	b.WriteString("Exit codes:")
	for _, code := range []int{
		exitcode.Success, exitcode.GeneralError, exitcode.UsageError, exitcode.ConfigError,
		exitcode.RemoteError, exitcode.AuthError, exitcode.NetworkError, exitcode.Interrupted,
	} {
		fmt.Fprintf(&b, "\n  %-4d%s", code, exitcode.GetExitCodeDescription(code))
	}
	return b.String()
}
