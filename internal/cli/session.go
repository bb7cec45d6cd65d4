package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/store"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Log in, log out and pick the active organization",
	}
	cmd.AddCommand(newLoginCommand(rootOpts))
	cmd.AddCommand(newLogoutCommand(rootOpts))
	cmd.AddCommand(newSwitchOrgCommand(rootOpts))
	cmd.AddCommand(newSessionShowCommand(rootOpts))
	return cmd
}

// sessionView is the printable session. The token is never printed.
type sessionView struct {
	User            *api.User          `json:"user"`
	CurrentOrg      *api.Organization  `json:"currentOrg"`
	Organizations   []api.Organization `json:"organizations"`
	IsAuthenticated bool               `json:"isAuthenticated"`
}

func viewSession(s store.Session) sessionView {
	return sessionView{
		User:            s.User,
		CurrentOrg:      s.CurrentOrg,
		Organizations:   s.Organizations,
		IsAuthenticated: s.IsAuthenticated,
	}
}

func orgLabel(o api.Organization) string {
	return fmt.Sprintf("%s (%s)", o.Name, o.ID)
}

func renderSession(w io.Writer, s sessionView) error {
	if !s.IsAuthenticated || s.User == nil || s.CurrentOrg == nil {
		_, err := fmt.Fprintln(w, "Not logged in.")
		return err
	}
	orgs := make([]string, 0, len(s.Organizations))
	for _, o := range s.Organizations {
		orgs = append(orgs, orgLabel(o))
	}
	return fields(w,
		field{"User", fmt.Sprintf("%s <%s>", s.User.Name, s.User.Email)},
		field{"Organization", orgLabel(*s.CurrentOrg)},
		field{"Organizations", strings.Join(orgs, ", ")},
	)
}

func newLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var token, orgID string
	cmd := &cobra.Command{
		Use:   "login --token <token>",
		Short: "Start a session with an API token",
		Long: `Start a session with an API token.

The token is checked by loading the current user and their organizations.
The session acts in --org, or in the user's home organization when --org
is not given.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return login(ctx, a, token, orgID)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API bearer token (required)")
	cmd.Flags().StringVar(&orgID, "org", "", "organization to act in")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func login(ctx context.Context, a *app, token, orgID string) error {
	a.useToken(token)

	user, err := a.bindings.CurrentUser(ctx)
	if err != nil {
		return err
	}
	orgs, err := a.bindings.Organizations(ctx)
	if err != nil {
		return err
	}
	if orgID == "" {
		orgID = user.OrgID
	}
	i := slices.IndexFunc(orgs, func(o api.Organization) bool { return o.ID == orgID })
	if i < 0 {
		return WrapExitError(ExitCommandError, fmt.Sprintf("cannot act in %q", orgID), store.ErrUnknownOrganization)
	}
	org := orgs[i]

	if err := a.state.Login(ctx, user, org, orgs, token); err != nil {
		return WrapExitError(ExitCommandError, "failed to save session", err)
	}
	a.state.SetFlags(organizationFlags(org))

	view := viewSession(a.state.Session())
	return a.out.Render(view, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Logged in as %s (%s)\n", user.Name, org.Name)
		return err
	})
}

func newLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.state.Logout(ctx); err != nil {
					return WrapExitError(ExitCommandError, "failed to save session", err)
				}
				a.cache.Clear()
				return a.out.Render(viewSession(a.state.Session()), func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Logged out.")
					return err
				})
			})
		},
	}
}

func newSwitchOrgCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-org <org-id>",
		Short: "Act in another of the session's organizations",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.state.SwitchOrganization(ctx, args[0]); err != nil {
					return err
				}
				a.cache.Clear()
				sess := a.state.Session()
				a.state.SetFlags(organizationFlags(*sess.CurrentOrg))
				return a.out.Render(viewSession(sess), func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Switched to %s\n", orgLabel(*sess.CurrentOrg))
					return err
				})
			})
		},
	}
}

func newSessionShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				view := viewSession(a.state.Session())
				return a.out.Render(view, func(w io.Writer) error { return renderSession(w, view) })
			})
		},
	}
}
