package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/navigation"
	"github.com/cjl-github/chiwen/internal/platform"
	"github.com/cjl-github/chiwen/internal/tui"
	"github.com/cjl-github/chiwen/internal/ux"
)

func newAssetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assets",
		Aliases: []string{"asset"},
		Short:   "List and manage console assets",
		Long: `List, inspect, delete and label the hosts registered with the console.

All asset commands need a signed-in session whose role grants the
"assets" capability.

Examples:
  chiwen assets list --category linux --status online
  chiwen assets show 42
  chiwen assets label 42 env=prod team-
  chiwen assets rm 42 --yes`,
	}
	cmd.AddCommand(
		newAssetsListCmd(a),
		newAssetsShowCmd(a),
		newAssetsRemoveCmd(a),
		newAssetsLabelCmd(a),
		newAssetsTreeCmd(a),
	)
	return cmd
}

func assetsRoute() map[string]string {
	return map[string]string{annotationRoute: navigation.RouteAssets}
}

type listOptions struct {
	search   string
	category string
	status   string
}

func newAssetsListCmd(a *app) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:         "list",
		Aliases:     []string{"ls"},
		Short:       "List assets",
		Args:        cobra.NoArgs,
		Annotations: assetsRoute(),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.query()
			if err != nil {
				return err
			}
			if !a.assets.FetchAll(cmd.Context()) {
				return a.storeError()
			}

			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(ux.AssetList{Items: assets.Filter(a.assets.Items(), query)})
		},
	}
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "match hostname or IP")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "all", "operating system family: all, linux or windows")
	cmd.Flags().StringVar(&opts.status, "status", "", "only assets in this state: online, offline or maintenance")
	return cmd
}

func (o *listOptions) query() (assets.Query, error) {
	category, err := assets.ParseCategory(o.category)
	if err != nil {
		return assets.Query{}, err
	}
	status := platform.AssetStatus(strings.ToLower(strings.TrimSpace(o.status)))
	if status != "" && !status.IsValid() {
		return assets.Query{}, errors.NewInputInvalidError(
			fmt.Sprintf("unknown status %q (want online, offline or maintenance)", o.status))
	}
	return assets.Query{Search: o.search, Category: category, Status: status}, nil
}

func newAssetsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "show <id>",
		Short:       "Show one asset",
		Args:        cobra.ExactArgs(1),
		Annotations: assetsRoute(),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := a.fetchAsset(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(ux.AssetDetail{Asset: asset})
		},
	}
}

func newAssetsRemoveCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:         "rm <id>...",
		Aliases:     []string{"delete"},
		Short:       "Delete assets",
		Long:        `Delete one or more assets from the console. Deletion cannot be undone.`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: assetsRoute(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.confirm(cmd, fmt.Sprintf("Delete %d asset(s): %s?", len(args), strings.Join(args, ", ")))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.") //nolint:errcheck
					return nil
				}
			}

			s := a.styles()
			for _, id := range args {
				if !a.assets.Remove(cmd.Context(), id) {
					return a.storeError()
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.Success.Render("Deleted asset "+id)) //nolint:errcheck
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAssetsLabelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label <id> key=value... key-...",
		Short: "Set or remove asset labels",
		Long: `Change the labels of an asset. key=value sets a label, key- removes it.
Labels not named are kept.

Examples:
  chiwen assets label 42 env=prod group=web
  chiwen assets label 42 deprecated-`,
		Args:        cobra.MinimumNArgs(2),
		Annotations: assetsRoute(),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, remove, err := parseLabelArgs(args[1:])
			if err != nil {
				return err
			}

			asset, err := a.fetchAsset(cmd, args[0])
			if err != nil {
				return err
			}

			id := assets.ID(asset)
			labels := assets.MergeLabels(asset.Labels, set, remove)
			if !a.assets.UpdateMetadata(cmd.Context(), id, labels) {
				return a.storeError()
			}

			updated, _ := a.assets.Get(id)
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(ux.AssetDetail{Asset: updated})
		},
	}
}

// parseLabelArgs splits key=value and key- arguments.
func parseLabelArgs(args []string) (map[string]string, []string, error) {
	var pairs, remove []string
	for _, arg := range args {
		if key, ok := strings.CutSuffix(arg, "-"); ok && !strings.Contains(arg, "=") {
			if key == "" {
				return nil, nil, errors.NewInputInvalidError(fmt.Sprintf("label %q has no key", arg))
			}
			remove = append(remove, key)
			continue
		}
		pairs = append(pairs, arg)
	}
	set, err := assets.ParseLabels(pairs)
	if err != nil {
		return nil, nil, err
	}
	return set, remove, nil
}

func newAssetsTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "tree",
		Short:       "Show assets grouped by operating system",
		Args:        cobra.NoArgs,
		Annotations: assetsRoute(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.assets.FetchAll(cmd.Context()) {
				return a.storeError()
			}
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(ux.TreeView{Root: assets.Tree(a.assets.Items())})
		},
	}
}

// fetchAsset reloads the collection and returns the asset with id.
func (a *app) fetchAsset(cmd *cobra.Command, id string) (assets.Asset, error) {
	if !a.assets.FetchAll(cmd.Context()) {
		return assets.Asset{}, a.storeError()
	}
	asset, ok := a.assets.Get(id)
	if !ok {
		return assets.Asset{}, errors.New(errors.ErrCodeRemoteNotFound, fmt.Sprintf("asset %s not found", id)).
			WithSuggestion("Run 'chiwen assets list' to see asset ids")
	}
	return asset, nil
}

// confirm asks message, using a terminal prompt when one is available and
// a plain y/N line on stdin otherwise.
func (a *app) confirm(cmd *cobra.Command, message string) (bool, error) {
	if a.interactive() {
		return tui.PromptForConfirmation(message, false)
	}
	return ux.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), message, false), nil
}
