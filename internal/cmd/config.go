package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/config"
	"github.com/cjl-github/chiwen/internal/ux"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit chiwen configuration",
		Long: `Manage chiwen configuration stored at ~/.chiwen/config.yaml

Every key can also be set through a CHIWEN_ environment variable, for
example CHIWEN_API_BASE_URL for api.base_url.

Examples:
  # View the effective configuration
  chiwen config show

  # Get a specific value
  chiwen config get api.base_url

  # Set a specific value
  chiwen config set api.base_url https://console.example.com

  # Show configuration file path
  chiwen config path
`,
		Annotations: map[string]string{annotationSetup: setupConfig},
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigGetCmd(a),
		newConfigSetCmd(a),
		newConfigPathCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"view"},
		Short:   "Display the effective configuration",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(ux.Settings{Path: a.cfg.Path(), Values: a.cfg.Values()})
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  `Print the effective value of a configuration key using dot notation (e.g., api.base_url).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value) //nolint:errcheck
			return nil
		},
	}
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a specific configuration value",
		Long: `Write a configuration key to the config file using dot notation
(e.g., api.timeout 10s). The resulting configuration is validated before
it is saved.`,
		Args: cobra.ExactArgs(2),
		// The current file may be invalid; set must still be able to fix it.
		Annotations: map[string]string{annotationSetup: setupNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath()
			if err := config.Set(path, args[0], args[1]); err != nil {
				return err
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path) //nolint:errcheck
			return nil
		},
	}
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.configPath()) //nolint:errcheck
			return nil
		},
	}
}

func (a *app) configPath() string {
	if a.opts.configPath != "" {
		return a.opts.configPath
	}
	return config.DefaultPath()
}
