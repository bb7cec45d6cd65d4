package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/config"
	"github.com/roach88/insightdash/internal/query"
	"github.com/roach88/insightdash/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	BaseURL     string
	StatePath   string
	StateFormat string

	// Persister overrides the state storage selected by config (for testing).
	Persister store.Persister
	// StateOptions and CacheOptions are appended to the defaults (for testing).
	StateOptions []store.Option
	CacheOptions []query.ManagerOption

	cfg    config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the insightdash CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insightdash",
		Short: "InsightDash - analytics dashboards from the terminal",
		Long: `Client for the InsightDash analytics API.

Browse and edit dashboards, upload datasets, run analyses and manage the
local session. Reads are cached per process; the session and preferences
are kept in local state storage between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.configure(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "API base URL (overrides INSIGHTDASH_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.StatePath, "state", "", "state storage path (overrides INSIGHTDASH_STATE_PATH)")
	cmd.PersistentFlags().StringVar(&opts.StateFormat, "state-format", "", "state storage format sqlite|yaml|memory (overrides INSIGHTDASH_STATE_FORMAT)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewDashboardsCommand(opts))
	cmd.AddCommand(NewDatasetsCommand(opts))
	cmd.AddCommand(NewAnalysesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewPrefsCommand(opts))
	cmd.AddCommand(NewFlagsCommand(opts))

	return cmd
}

// configure loads the environment, applies flag overrides and sets up
// logging. Flags win over the environment only when given explicitly.
func (o *RootOptions) configure(cmd *cobra.Command) error {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.APIBaseURL = o.BaseURL
	}
	if flags.Changed("state") {
		cfg.StatePath = o.StatePath
	}
	if flags.Changed("state-format") {
		cfg.StateFormat = o.StateFormat
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.cfg = cfg

	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// exactArgs is cobra.ExactArgs reported as a command error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
