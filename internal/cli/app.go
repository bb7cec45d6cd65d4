package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/config"
	"github.com/roach88/insightdash/internal/query"
	"github.com/roach88/insightdash/internal/store"
)

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, NewRootCommand(), args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	ctx, stop := withSignals(ctx)
	defer stop()

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format := "text"
	if f := cmd.PersistentFlags().Lookup("format"); f != nil && isValidFormat(f.Value.String()) {
		format = f.Value.String()
	}
	out := &Output{Format: format, Writer: stderr}
	if format == "json" {
		out.Writer = stdout
	}
	_ = out.Error(ErrorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

// withSignals cancels the returned context on SIGINT or SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// app is the per-invocation wiring of state, transport, cache and bindings.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	state    *store.State
	client   *api.Client
	cache    *query.Manager
	bindings *query.Bindings
	out      *Output
	errw     io.Writer

	mu sync.Mutex
	// token authenticates requests made before a session exists (login).
	token string
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	ctx := cmd.Context()
	cfg := opts.cfg
	logger := opts.logger

	p, err := openPersister(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open state", err)
	}
	stateOpts := append([]store.Option{store.WithLogger(logger)}, opts.StateOptions...)
	st, err := store.Open(ctx, p, stateOpts...)
	if err != nil {
		_ = p.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	if org := st.Session().CurrentOrg; org != nil {
		st.SetFlags(organizationFlags(*org))
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		state:  st,
		errw:   cmd.ErrOrStderr(),
		out: &Output{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}

	a.client = newAPIClient(cfg, a.tokenFunc(), logger)
	cacheOpts := append([]query.ManagerOption{query.WithLogger(logger)}, opts.CacheOptions...)
	a.cache = query.NewManager(cacheOpts...)
	a.bindings = query.NewBindings(a.client, a.cache,
		query.WithNotifier(st),
		query.WithBindingsLogger(logger),
	)
	return a, nil
}

// newAPIClient builds the client for cfg. Plain requests are bounded by
// RequestTimeout end to end. Uploads stream bodies of any length, so only
// the wait for response headers is bounded; cancellation comes from ctx.
func newAPIClient(cfg config.Config, token api.TokenFunc, logger *slog.Logger) *api.Client {
	transport := api.NewTransport(cfg.APIBaseURL, token,
		api.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		api.WithLogger(logger),
	)
	return api.NewClient(transport,
		api.WithUploadHTTPClient(uploadHTTPClient(cfg.RequestTimeout)),
		api.WithMaxUploadBytes(cfg.UploadMaxBytes()),
		api.WithClientLogger(logger),
	)
}

func uploadHTTPClient(headerTimeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: tr}
}

func openPersister(opts *RootOptions) (store.Persister, error) {
	if opts.Persister != nil {
		return opts.Persister, nil
	}
	switch opts.cfg.StateFormat {
	case config.StateYAML:
		return store.OpenFile(opts.cfg.StatePath)
	case config.StateMemory:
		return store.NewMemoryPersister(), nil
	default:
		return store.OpenSQLite(opts.cfg.StatePath)
	}
}

// tokenFunc prefers a token set for the current invocation over the
// persisted session.
func (a *app) tokenFunc() api.TokenFunc {
	session := a.state.TokenFunc()
	return func(ctx context.Context) (string, error) {
		a.mu.Lock()
		token := a.token
		a.mu.Unlock()
		if token != "" {
			return token, nil
		}
		return session(ctx)
	}
}

func (a *app) useToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// close reports queued notifications on stderr and releases resources.
func (a *app) close() {
	for _, n := range a.state.Notifications() {
		if n.Message != "" {
			fmt.Fprintf(a.errw, "%s: %s: %s\n", n.Type, n.Title, n.Message)
		} else {
			fmt.Fprintf(a.errw, "%s: %s\n", n.Type, n.Title)
		}
	}
	a.cache.Close()
	if err := a.state.Close(); err != nil {
		a.logger.Error("error closing state", "error", err)
	}
}

// run opens the app, calls fn and closes the app.
func run(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

// organizationFlags derives the plan-gated feature flags from the
// organization's settings. Flags the organization does not mention keep
// their defaults.
func organizationFlags(org api.Organization) map[string]bool {
	flags := store.DefaultFlags()
	if org.Settings == nil || org.Settings.Features == nil {
		return flags
	}
	f := org.Settings.Features
	flags[store.FlagBilling] = f.Billing
	flags[store.FlagAuditLogs] = f.Audit
	flags[store.FlagWebhooks] = f.Webhooks
	return flags
}
