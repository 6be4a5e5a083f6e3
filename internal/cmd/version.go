package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()

			switch a.opts.output {
			case "", "text":
			default:
				f, err := a.formatter(cmd)
				if err != nil {
					return err
				}
				return f.Format(info)
			}

			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), info.String()) //nolint:errcheck
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chiwen %s\n", info.Short()) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	return cmd
}
