package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/tui"
)

func newConsoleCmd(a *app) *cobra.Command {
	var noAltScreen bool
	cmd := &cobra.Command{
		Use:   "console [route]",
		Short: "Open the interactive console",
		Long: `Open the full-screen console. Without a session it starts at the login
screen and continues to the requested route after sign-in.

Routes: dashboard (default), assets, sessions, audit.

Examples:
  chiwen console
  chiwen console assets`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.interactive() {
				return errors.NewInputInvalidError("the console needs an interactive terminal").
					WithSuggestion("Use 'chiwen assets list' in scripts")
			}

			start := "/"
			if len(args) == 1 {
				if _, err := a.nav.Table().Request(args[0]); err != nil {
					return err
				}
				start = args[0]
			}

			styles := a.styles()
			model := tui.NewModel(cmd.Context(), a.session, a.assets, a.nav, tui.Options{
				Server: a.cfg.API.BaseURL,
				Start:  start,
				Styles: &styles,
				Logger: a.log,
			})
			return tui.Run(cmd.Context(), model, tui.RunOptions{
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
				AltScreen: !noAltScreen,
			})
		},
	}
	cmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "render inline instead of using the alternate screen")
	return cmd
}
