package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/health"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/ux"
)

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, server and session",
		Long: `Diagnose the chiwen client setup:

  config   the configuration file loads and validates
  server   the console server answers HTTP
  storage  the token file location is writable and private
  session  a stored session was restored and is not about to expire

Doctor exits non-zero when any check is unhealthy. A missing session is
reported as degraded.`,
		Args: cobra.NoArgs,
		// Doctor reports a broken configuration instead of failing on it.
		Annotations: map[string]string{annotationSetup: setupNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := health.NewManager()

			err := a.loadConfig()
			if err == nil {
				a.log = log.New(log.FromSettings(a.cfg.Log.Level, a.cfg.Log.Format, cmd.ErrOrStderr()))
				err = a.buildSession(cmd.Context())
			}
			path := a.opts.configPath
			if a.cfg != nil {
				path = a.cfg.Path()
			}
			manager.AddChecker(health.NewConfigChecker(path, err))

			if err == nil {
				manager.AddChecker(health.NewServerChecker(a.client, a.cfg.API.BaseURL))
				manager.AddChecker(health.NewStorageChecker(a.cfg.TokenFile(), a.cfg.Storage.Ephemeral))
				manager.AddChecker(health.NewSessionChecker(a.session))
			}

			report := manager.Run(cmd.Context())
			f, ferr := a.formatter(cmd)
			if ferr != nil {
				return ferr
			}
			if err := f.Format(ux.HealthReport{Report: report}); err != nil {
				return err
			}

			if report.Status == health.StatusUnhealthy {
				var failed []string
				for _, c := range report.Checks {
					if c.Status == health.StatusUnhealthy {
						failed = append(failed, c.Name)
					}
				}
				return errors.New(errors.ErrCodeUnhealthy, fmt.Sprintf("%d check(s) failed: %v", len(failed), failed))
			}
			return nil
		},
	}
}
