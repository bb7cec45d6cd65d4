package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/store"
)

// NewPrefsCommand creates the prefs command group.
func NewPrefsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change UI preferences",
	}
	cmd.AddCommand(newPrefsShowCommand(rootOpts))
	cmd.AddCommand(newPrefsSetCommand(rootOpts))
	return cmd
}

func renderPrefs(w io.Writer, p store.Preferences) error {
	return fields(w,
		field{"Theme", p.Theme},
		field{"Language", p.Language},
		field{"Sidebar collapsed", yesNo(p.SidebarCollapsed)},
	)
}

func newPrefsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show preferences",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				p := a.state.Preferences()
				return a.out.Render(p, func(w io.Writer) error { return renderPrefs(w, p) })
			})
		},
	}
}

func newPrefsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		theme     string
		lang      string
		collapsed bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		Long: `Change preferences.

--theme is light, dark or system. --language takes a BCP 47 tag and is
matched to pt-BR or en ("pt" becomes pt-BR, "en-GB" becomes en).`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				flags := cmd.Flags()
				if flags.Changed("theme") {
					if err := a.state.SetTheme(ctx, theme); err != nil {
						return prefsError(err)
					}
				}
				if flags.Changed("language") {
					if err := a.state.SetLanguage(ctx, lang); err != nil {
						return prefsError(err)
					}
				}
				if flags.Changed("sidebar-collapsed") {
					if err := a.state.SetSidebarCollapsed(ctx, collapsed); err != nil {
						return prefsError(err)
					}
				}
				p := a.state.Preferences()
				return a.out.Render(p, func(w io.Writer) error { return renderPrefs(w, p) })
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "light|dark|system")
	cmd.Flags().StringVar(&lang, "language", "", "UI language (pt-BR|en)")
	cmd.Flags().BoolVar(&collapsed, "sidebar-collapsed", false, "collapse the sidebar")
	return cmd
}

// prefsError reports rejected values as command errors.
func prefsError(err error) error {
	if errors.Is(err, store.ErrInvalidTheme) || errors.Is(err, store.ErrUnsupportedLanguage) {
		return WrapExitError(ExitCommandError, "invalid preference", err)
	}
	return WrapExitError(ExitCommandError, "failed to save preferences", err)
}

// NewFlagsCommand creates the flags command.
func NewFlagsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flags",
		Short: "Show feature flags",
		Long: `Show feature flags.

Plan-gated flags (billing, auditLogs, webhooks) follow the current
organization's settings; the rest use their defaults.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				names, values := a.state.Flags()
				return a.out.Render(values, func(w io.Writer) error {
					rows := make([][]string, 0, len(names))
					for _, n := range names {
						rows = append(rows, []string{n, onOff(values[n])})
					}
					return table(w, []string{"FLAG", "STATE"}, rows)
				})
			})
		},
	}
}
