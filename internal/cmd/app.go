package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/authz"
	"github.com/cjl-github/chiwen/internal/config"
	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/navigation"
	"github.com/cjl-github/chiwen/internal/platform"
	"github.com/cjl-github/chiwen/internal/session"
	"github.com/cjl-github/chiwen/internal/tokenstore"
	"github.com/cjl-github/chiwen/internal/tui"
	"github.com/cjl-github/chiwen/internal/ux"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	server     string
	output     string
	logLevel   string
	noColor    bool
}

// app is the dependency graph shared by every command. It is built once,
// before the command runs, in the order the session core needs: the token
// store and transport first, then the session with its restore, then the
// navigator and the asset store reading that session.
type app struct {
	opts globalOptions

	// interactive reports whether prompts may be shown.
	interactive func() bool

	cfg     *config.Config
	log     *log.Logger
	tokens  tokenstore.Store
	client  *platform.Client
	session *session.Manager
	nav     *navigation.Navigator
	assets  *assets.Store
}

func newApp() *app {
	return &app{interactive: tui.ShouldPrompt}
}

func (a *app) setup(cmd *cobra.Command) error {
	mode := setupOf(cmd)
	if mode == setupNone {
		return nil
	}

	if err := a.loadConfig(); err != nil {
		return err
	}
	a.log = log.New(log.FromSettings(a.cfg.Log.Level, a.cfg.Log.Format, cmd.ErrOrStderr()))
	log.SetDefaultLogger(a.log)

	if mode == setupConfig {
		return nil
	}

	if err := a.buildSession(cmd.Context()); err != nil {
		return err
	}
	return a.guard(cmd)
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.server != "" {
		cfg.API.BaseURL = strings.TrimRight(a.opts.server, "/")
	}
	if a.opts.output != "" {
		cfg.Output.Format = a.opts.output
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) buildSession(ctx context.Context) error {
	if a.cfg.Storage.Ephemeral {
		a.tokens = tokenstore.NewMemoryStore()
	} else {
		a.tokens = tokenstore.NewFileStore(a.cfg.TokenFile(), a.cfg.Storage.Passphrase, a.log)
	}

	a.client = platform.NewClient(a.cfg.API.BaseURL,
		platform.WithTimeout(a.cfg.API.Timeout),
		platform.WithProfilePath(a.cfg.API.ProfilePath),
		platform.WithLogger(a.log))

	gate := authz.DefaultGate()
	if a.cfg.Authz.File != "" {
		loaded, err := authz.LoadGate(a.cfg.Authz.File)
		if err != nil {
			return err
		}
		gate = loaded
	}

	a.session = session.NewManager(a.tokens, a.client, session.Options{
		Gate:           gate,
		Logger:         a.log,
		RefreshProfile: a.cfg.Session.RefreshProfile,
	})
	a.session.Restore(ctx)

	a.nav = navigation.NewNavigator(navigation.DefaultTable(), a.session, a.log)
	a.assets = assets.NewStore(a.client, a.session, a.log)
	return nil
}

// guard runs the navigation guard for the command's route. A redirect to
// login becomes a not-logged-in error; a route whose capability the role
// lacks is refused.
func (a *app) guard(cmd *cobra.Command) error {
	route := cmd.Annotations[annotationRoute]
	if route == "" {
		return nil
	}

	decision, err := a.nav.Navigate(route)
	if err != nil {
		return err
	}
	if decision.Outcome == navigation.RedirectToLogin {
		if restoreErr := a.session.LastError(); restoreErr != nil {
			a.log.Debug("session restore failed earlier", "reason", errors.Message(restoreErr))
		}
		return errors.NewNotLoggedInError(route)
	}

	r, _ := a.nav.Table().Lookup(route)
	if r.Capability != "" && !a.session.HasPermission(r.Capability) {
		return errors.NewPermissionDeniedError(string(r.Capability), a.session.Role().String())
	}
	return nil
}

// formatter returns the output formatter for the configured format.
func (a *app) formatter(cmd *cobra.Command) (ux.Formatter, error) {
	format := a.opts.output
	if a.cfg != nil {
		format = a.cfg.Output.Format
	}
	f, err := ux.NewFormatter(format, &ux.FormatterOptions{
		Writer:  cmd.OutOrStdout(),
		NoColor: a.opts.noColor,
	})
	if err != nil {
		return nil, errors.NewInputInvalidError(err.Error())
	}
	return f, nil
}

// styles returns the styles for messages written outside a formatter.
func (a *app) styles() ux.Styles {
	if a.opts.noColor {
		return ux.PlainStyles()
	}
	return ux.DefaultStyles()
}

// storeError turns the asset store's last failure into a command error.
func (a *app) storeError() error {
	if err := a.assets.LastError(); err != nil {
		return err
	}
	return errors.NewAuthRequiredError()
}

func setupOf(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if mode, ok := c.Annotations[annotationSetup]; ok {
			return mode
		}
	}
	return ""
}
