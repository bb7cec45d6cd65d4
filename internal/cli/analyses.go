package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
)

// NewAnalysesCommand creates the analyses command group.
func NewAnalysesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyses",
		Short: "Start and follow analysis jobs",
	}
	cmd.AddCommand(newAnalysesCreateCommand(rootOpts))
	cmd.AddCommand(newAnalysesGetCommand(rootOpts))
	cmd.AddCommand(newAnalysesWatchCommand(rootOpts))
	return cmd
}

func newAnalysesCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <dataset-id>",
		Short: "Queue an analysis of a dataset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := a.bindings.CreateAnalysis(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Render(api.AnalysisRef{JobID: id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Queued analysis %s\n", id)
					return err
				})
			})
		},
	}
}

func newAnalysesGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show an analysis job",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				job, err := a.bindings.Analysis(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Render(job, func(w io.Writer) error { return renderJob(w, job) })
			})
		},
	}
}

func newAnalysesWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Poll an analysis job until it finishes",
		Long: `Poll an analysis job until it succeeds or fails.

Text output prints one line per poll. JSON output prints the final job.
Exits with status 1 if the job failed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return watchAnalysis(ctx, a, args[0], interval)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	return cmd
}

func watchAnalysis(ctx context.Context, a *app, id string, interval time.Duration) error {
	var last api.AnalysisJob
	err := a.bindings.WatchAnalysis(ctx, id, interval, func(job api.AnalysisJob, err error) bool {
		if err != nil {
			a.logger.Warn("poll failed", "job", id, "error", err)
			return true
		}
		last = job
		if !a.out.JSON() {
			fmt.Fprintf(a.out.Writer, "%s  %s  %s\n", job.ID, job.Status, percent(job.Progress))
		}
		return true
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "watch interrupted", err)
		}
		return err
	}
	if a.out.JSON() {
		if err := a.out.Success(last); err != nil {
			return err
		}
	}
	if last.Status == api.JobFailed {
		return NewExitError(ExitFailure, fmt.Sprintf("analysis %s failed", last.ID))
	}
	return nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past and running analyses",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				jobs, err := a.bindings.History(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(jobs, func(w io.Writer) error { return renderJobs(w, jobs) })
			})
		},
	}
}
