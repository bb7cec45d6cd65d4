package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
)

// NewAdminCommand creates the admin command group.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users and read the audit log",
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "Manage the organization's users",
	}
	users.AddCommand(newUsersListCommand(rootOpts))
	users.AddCommand(newUsersCreateCommand(rootOpts))
	users.AddCommand(newUsersUpdateCommand(rootOpts))
	users.AddCommand(newUsersDeleteCommand(rootOpts))

	cmd.AddCommand(users)
	cmd.AddCommand(newAuditLogsCommand(rootOpts))
	return cmd
}

func newUsersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				users, err := a.bindings.Users(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(users, func(w io.Writer) error { return renderUsers(w, users) })
			})
		},
	}
}

type userFlags struct {
	name  string
	email string
	org   string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "full name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.org, "org", "", "organization id")
}

func (f *userFlags) patch(cmd *cobra.Command) api.UserPatch {
	var p api.UserPatch
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = &f.name
	}
	if flags.Changed("email") {
		p.Email = &f.email
	}
	if flags.Changed("org") {
		p.OrgID = &f.org
	}
	return p
}

func newUsersCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "create --name <name> --email <email>",
		Short: "Invite a user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.bindings.CreateUser(ctx, f.patch(cmd))
				if err != nil {
					return err
				}
				return a.out.Render(u, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created user %s (%s)\n", u.ID, u.Email)
					return err
				})
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a user's fields",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.bindings.UpdateUser(ctx, args[0], f.patch(cmd))
				if err != nil {
					return err
				}
				return a.out.Render(u, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated user %s (%s)\n", u.ID, u.Email)
					return err
				})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newUsersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a user",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.bindings.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Render(map[string]string{"id": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted user %s\n", args[0])
					return err
				})
			})
		},
	}
}

func newAuditLogsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit-logs",
		Short: "Show the organization's audit log",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				logs, err := a.bindings.AuditLogs(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(logs, func(w io.Writer) error { return renderAuditLogs(w, logs) })
			})
		},
	}
}
