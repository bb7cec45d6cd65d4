package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
)

// NewDashboardsCommand creates the dashboards command group.
func NewDashboardsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboards",
		Short: "List and edit dashboards",
	}
	cmd.AddCommand(newDashboardsListCommand(rootOpts))
	cmd.AddCommand(newDashboardsGetCommand(rootOpts))
	cmd.AddCommand(newDashboardsCreateCommand(rootOpts))
	cmd.AddCommand(newDashboardsUpdateCommand(rootOpts))
	cmd.AddCommand(newDashboardsDeleteCommand(rootOpts))
	return cmd
}

func newDashboardsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the organization's dashboards",
		Long: `List the organization's dashboards.

A dashboards list that cannot be loaded is shown as empty; the failure is
logged as a warning.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				ds, err := a.bindings.Dashboards(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(ds, func(w io.Writer) error { return renderDashboards(w, ds) })
			})
		},
	}
}

func newDashboardsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one dashboard",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				d, err := a.bindings.Dashboard(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Render(d, func(w io.Writer) error { return renderDashboard(w, d) })
			})
		},
	}
}

// dashboardFlags are the editable dashboard fields.
type dashboardFlags struct {
	name        string
	description string
	tags        []string
	public      bool
}

func (f *dashboardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "dashboard name")
	cmd.Flags().StringVar(&f.description, "description", "", "dashboard description")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&f.public, "public", false, "share the dashboard publicly")
}

// patch builds a partial update holding only the flags given explicitly.
func (f *dashboardFlags) patch(cmd *cobra.Command) api.DashboardPatch {
	var p api.DashboardPatch
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = &f.name
	}
	if flags.Changed("description") {
		p.Description = &f.description
	}
	if flags.Changed("tag") {
		p.Tags = f.tags
	}
	if flags.Changed("public") {
		p.IsPublic = &f.public
	}
	return p
}

func newDashboardsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var f dashboardFlags
	cmd := &cobra.Command{
		Use:   "create --name <name>",
		Short: "Create a dashboard",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				d, err := a.bindings.CreateDashboard(ctx, f.patch(cmd))
				if err != nil {
					return err
				}
				return a.out.Render(d, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created dashboard %s (%s)\n", d.ID, d.Name)
					return err
				})
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDashboardsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var f dashboardFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a dashboard's fields",
		Long: `Change a dashboard's fields.

Only the flags given are sent; every other field keeps its value.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				d, err := a.bindings.UpdateDashboard(ctx, args[0], f.patch(cmd))
				if err != nil {
					return err
				}
				return a.out.Render(d, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated dashboard %s (%s)\n", d.ID, d.Name)
					return err
				})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDashboardsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dashboard",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.bindings.DeleteDashboard(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Render(map[string]string{"id": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted dashboard %s\n", args[0])
					return err
				})
			})
		},
	}
}
