package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/navigation"
	"github.com/cjl-github/chiwen/internal/session"
	"github.com/cjl-github/chiwen/internal/tokenstore"
	"github.com/cjl-github/chiwen/internal/tui"
	"github.com/cjl-github/chiwen/internal/ux"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the console session",
		Long: `Sign in to the console server, sign out, and inspect the current session.

Examples:
  chiwen auth login --username admin
  chiwen auth status
  chiwen auth logout`,
	}
	cmd.AddCommand(newAuthLoginCmd(a), newAuthLogoutCmd(a), newAuthStatusCmd(a))
	return cmd
}

type loginOptions struct {
	username      string
	password      string
	passwordStdin bool
	force         bool
}

func newAuthLoginCmd(a *app) *cobra.Command {
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the console server",
		Long: `Sign in with a username and password. The token is stored so later
commands reuse the session.

Missing credentials are prompted for on a terminal. In scripts pass
--username and either --password or --password-stdin.

Examples:
  chiwen auth login
  chiwen auth login --username admin
  echo "$PASSWORD" | chiwen auth login --username admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd, a, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&opts.force, "force", false, "sign in again even when a session exists")
	return cmd
}

func runAuthLogin(cmd *cobra.Command, a *app, opts *loginOptions) error {
	decision, err := a.nav.Navigate(navigation.RouteLogin)
	if err != nil {
		return err
	}
	if decision.Outcome == navigation.RedirectToDefault && !opts.force {
		fmt.Fprintf(cmd.OutOrStdout(), "Already logged in as %s. Use --force to sign in again.\n", //nolint:errcheck
			displayName(a.session.Snapshot()))
		return nil
	}

	username, password, err := a.credentials(cmd, opts)
	if err != nil {
		return err
	}

	if !a.session.Login(cmd.Context(), username, password) {
		loginErr := a.session.LastError()
		if errors.HasCode(loginErr, errors.ErrCodeTransport) {
			return loginErr
		}
		return errors.NewLoginFailedError(a.session.Err())
	}

	f, err := a.formatter(cmd)
	if err != nil {
		return err
	}
	return f.Format(a.sessionStatus())
}

// credentials completes the username and password from flags, stdin or an
// interactive prompt.
func (a *app) credentials(cmd *cobra.Command, opts *loginOptions) (string, string, error) {
	username := strings.TrimSpace(opts.username)
	password := opts.password

	if opts.passwordStdin {
		if password != "" {
			return "", "", errors.NewInputInvalidError("--password and --password-stdin are mutually exclusive")
		}
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return "", "", errors.NewInputInvalidError("could not read password from stdin: " + err.Error())
		}
		password = line
	}

	if username != "" && password != "" {
		return username, password, nil
	}
	if !a.interactive() {
		return "", "", errors.NewInputInvalidError("--username and a password are required when not running interactively").
			WithSuggestion("Pass --password-stdin to read the password from a pipe")
	}

	creds, err := tui.PromptForCredentials(a.cfg.API.BaseURL, username)
	if err != nil {
		return "", "", err
	}
	return creds.Username, creds.Password, nil
}

func newAuthLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			was := a.session.IsAuthenticated()
			a.session.Logout()

			s := a.styles()
			if was {
				fmt.Fprintln(cmd.OutOrStdout(), s.Success.Render("Logged out.")) //nolint:errcheck
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), s.Muted.Render("Not logged in.")) //nolint:errcheck
			}
			return nil
		},
	}
}

func newAuthStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Show whether a session is active, who it belongs to, its role and the
capabilities that role grants. A stored session the server no longer
accepts is reported with the reason it was dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(a.sessionStatus())
		},
	}
}

func (a *app) sessionStatus() ux.SessionStatus {
	snap := a.session.Snapshot()
	caps := a.session.Capabilities()
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}

	status := ux.SessionStatus{
		Authenticated: snap.IsAuthenticated(),
		Server:        a.cfg.API.BaseURL,
		Role:          snap.Role.String(),
		Capabilities:  names,
		Error:         a.session.Err(),
	}
	if snap.IsAuthenticated() {
		status.Username = displayName(snap)
		status.TokenFingerprint = tokenstore.Fingerprint(snap.Token)
		if exp, ok := session.ExpiresAt(snap.Token); ok {
			status.ExpiresAt = &exp
		}
	}
	return status
}

func displayName(s session.Snapshot) string {
	if name := s.User.DisplayName(); name != "" {
		return name
	}
	if claims, ok := session.ParseClaims(s.Token); ok && claims.Username != "" {
		return claims.Username
	}
	return "unknown user"
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
