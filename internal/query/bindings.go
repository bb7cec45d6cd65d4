package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/insightdash/internal/api"
)

// Notification kinds understood by a Notifier.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)

// Notifier receives user-visible feedback about mutations.
type Notifier interface {
	Notify(kind, title, message string)
}

// Bindings are the typed reads and writes the application uses. Each read
// has a fixed key and policy; each write lists the keys it invalidates.
type Bindings struct {
	client *api.Client
	cache  *Manager
	notify Notifier
	logger *slog.Logger
}

// BindingsOption configures Bindings.
type BindingsOption func(*Bindings)

// WithNotifier attaches a sink for mutation feedback.
func WithNotifier(n Notifier) BindingsOption {
	return func(b *Bindings) {
		b.notify = n
	}
}

// WithBindingsLogger sets the logger used for payload validation problems.
func WithBindingsLogger(l *slog.Logger) BindingsOption {
	return func(b *Bindings) {
		b.logger = l
	}
}

// NewBindings wires the client to the cache.
func NewBindings(c *api.Client, m *Manager, opts ...BindingsOption) *Bindings {
	b := &Bindings{client: c, cache: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cache returns the underlying manager.
func (b *Bindings) Cache() *Manager {
	return b.cache
}

func (b *Bindings) success(title, message string) {
	if b.notify != nil {
		b.notify.Notify(NotifySuccess, title, message)
	}
}

func (b *Bindings) failed(title string, err error) error {
	if b.notify != nil && !api.IsUploadCancelled(err) {
		b.notify.Notify(NotifyError, title, err.Error())
	}
	return err
}

// data adapts a client call to a fetch that yields the envelope payload.
func data[T any](call func(context.Context) (*api.Envelope[T], error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		env, err := call(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return env.Data, nil
	}
}

func withEnabled(p Policy, enabled func() bool) Policy {
	p.Enabled = enabled
	return p
}

// Auth

func (b *Bindings) CurrentUser(ctx context.Context) (api.User, error) {
	return Get(ctx, b.cache, Keys.User(), UserPolicy, data(b.client.GetCurrentUser))
}

func (b *Bindings) Organizations(ctx context.Context) ([]api.Organization, error) {
	return Get(ctx, b.cache, Keys.Organizations(), OrganizationsPolicy, data(b.client.GetUserOrganizations))
}

// Datasets

// Datasets resolves to an empty list when the read fails; the failure is
// logged and recorded on the cache entry.
func (b *Bindings) Datasets(ctx context.Context) ([]api.Dataset, error) {
	return GetList(ctx, b.cache, Keys.Datasets(), DatasetsPolicy, data(b.client.GetDatasets))
}

// Dataset returns ErrDisabled for an empty id.
func (b *Bindings) Dataset(ctx context.Context, id string) (api.DatasetDetail, error) {
	fn := data(func(ctx context.Context) (*api.Envelope[api.DatasetDetail], error) {
		return b.client.GetDataset(ctx, id)
	})
	return Get(ctx, b.cache, Keys.Dataset(id), withEnabled(Policy{}, NonEmpty(id)), fn)
}

// UploadDataset streams file to the server and blocks until the upload
// settles. Cancel ctx to abort it; a cancelled upload returns an error
// matching api.ErrUploadCancelled and produces no notification.
func (b *Bindings) UploadDataset(ctx context.Context, file api.UploadFile, opts api.UploadOptions) (api.UploadResult, error) {
	res, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.UploadResult], error) {
		return b.client.UploadDataset(ctx, file, opts).Wait()
	}, Keys.Datasets())
	if err != nil {
		return api.UploadResult{}, b.failed("Upload failed", err)
	}
	b.success("Upload complete", fmt.Sprintf("%s was uploaded", file.Name))
	return res.Data, nil
}

func (b *Bindings) DeleteDataset(ctx context.Context, id string) error {
	err := b.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := b.client.DeleteDataset(ctx, id)
		return err
	}, Keys.Datasets(), Keys.Dataset(id))
	if err != nil {
		return b.failed("Could not delete dataset", err)
	}
	return nil
}

// Dashboards

// Dashboards validates the payload shape before decoding it. A malformed
// payload counts as a failed read, so like any other failure it resolves
// to an empty list.
func (b *Bindings) Dashboards(ctx context.Context) ([]api.Dashboard, error) {
	return GetList(ctx, b.cache, Keys.Dashboards(), DashboardsPolicy, b.fetchDashboards)
}

func (b *Bindings) fetchDashboards(ctx context.Context) ([]api.Dashboard, error) {
	env, err := b.client.GetDashboardsRaw(ctx)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return []api.Dashboard{}, nil
	}
	if problems := api.ValidateDashboards(env.Data); len(problems) > 0 {
		b.logger.Error("invalid dashboards payload", "problems", problems)
		return nil, &PayloadError{Resource: "dashboards", Problems: problems}
	}
	var out []api.Dashboard
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, &PayloadError{Resource: "dashboards", Problems: []string{err.Error()}}
	}
	return out, nil
}

// Dashboard returns ErrDisabled for an empty id.
func (b *Bindings) Dashboard(ctx context.Context, id string) (api.Dashboard, error) {
	fn := data(func(ctx context.Context) (*api.Envelope[api.Dashboard], error) {
		return b.client.GetDashboard(ctx, id)
	})
	return Get(ctx, b.cache, Keys.Dashboard(id), withEnabled(Policy{}, NonEmpty(id)), fn)
}

func (b *Bindings) CreateDashboard(ctx context.Context, d api.DashboardPatch) (api.Dashboard, error) {
	env, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.Dashboard], error) {
		return b.client.CreateDashboard(ctx, d)
	}, Keys.Dashboards())
	if err != nil {
		return api.Dashboard{}, b.failed("Could not create dashboard", err)
	}
	return env.Data, nil
}

// UpdateDashboard invalidates both the list and the item.
func (b *Bindings) UpdateDashboard(ctx context.Context, id string, d api.DashboardPatch) (api.Dashboard, error) {
	env, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.Dashboard], error) {
		return b.client.UpdateDashboard(ctx, id, d)
	}, Keys.Dashboards(), Keys.Dashboard(id))
	if err != nil {
		return api.Dashboard{}, b.failed("Could not update dashboard", err)
	}
	return env.Data, nil
}

func (b *Bindings) DeleteDashboard(ctx context.Context, id string) error {
	err := b.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := b.client.DeleteDashboard(ctx, id)
		return err
	}, Keys.Dashboards(), Keys.Dashboard(id))
	if err != nil {
		return b.failed("Could not delete dashboard", err)
	}
	return nil
}

// Analyses

// CreateAnalysis queues a job and returns its id.
func (b *Bindings) CreateAnalysis(ctx context.Context, datasetID string) (string, error) {
	env, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.AnalysisRef], error) {
		return b.client.CreateAnalysis(ctx, datasetID)
	}, Keys.History())
	if err != nil {
		return "", b.failed("Could not start analysis", err)
	}
	return env.Data.JobID, nil
}

func (b *Bindings) analysisFetch(id string) func(context.Context) (api.AnalysisJob, error) {
	return data(func(ctx context.Context) (*api.Envelope[api.AnalysisJob], error) {
		return b.client.GetAnalysis(ctx, id)
	})
}

// Analysis returns ErrDisabled for an empty id.
func (b *Bindings) Analysis(ctx context.Context, id string) (api.AnalysisJob, error) {
	return Get(ctx, b.cache, Keys.Analysis(id), withEnabled(AnalysisPolicy, NonEmpty(id)), b.analysisFetch(id))
}

// WatchAnalysis polls the job every interval (AnalysisPolicy's when zero)
// and calls onUpdate with each result. It returns nil once the job is
// terminal, or when onUpdate returns false, and ctx.Err() when ctx ends.
func (b *Bindings) WatchAnalysis(ctx context.Context, id string, interval time.Duration, onUpdate func(api.AnalysisJob, error) bool) error {
	p := withEnabled(AnalysisPolicy, NonEmpty(id))
	if interval > 0 {
		p.PollInterval = interval
	}
	return Watch(ctx, b.cache, Keys.Analysis(id), p, b.analysisFetch(id), func(job api.AnalysisJob, err error) bool {
		if !onUpdate(job, err) {
			return false
		}
		return err != nil || !job.Terminal()
	})
}

func (b *Bindings) History(ctx context.Context) ([]api.AnalysisJob, error) {
	return Get(ctx, b.cache, Keys.History(), HistoryPolicy, data(b.client.GetHistory))
}

// WatchHistory polls the job history until onUpdate returns false or ctx
// ends.
func (b *Bindings) WatchHistory(ctx context.Context, interval time.Duration, onUpdate func([]api.AnalysisJob, error) bool) error {
	p := HistoryPolicy
	if interval > 0 {
		p.PollInterval = interval
	}
	return Watch(ctx, b.cache, Keys.History(), p, data(b.client.GetHistory), onUpdate)
}

// Admin

func (b *Bindings) Users(ctx context.Context) ([]api.User, error) {
	return Get(ctx, b.cache, Keys.Users(), UsersPolicy, data(b.client.GetUsers))
}

func (b *Bindings) CreateUser(ctx context.Context, u api.UserPatch) (api.User, error) {
	env, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.User], error) {
		return b.client.CreateUser(ctx, u)
	}, Keys.Users())
	if err != nil {
		return api.User{}, b.failed("Could not create user", err)
	}
	return env.Data, nil
}

func (b *Bindings) UpdateUser(ctx context.Context, id string, u api.UserPatch) (api.User, error) {
	env, err := Mutation(ctx, b.cache, func(ctx context.Context) (*api.Envelope[api.User], error) {
		return b.client.UpdateUser(ctx, id, u)
	}, Keys.Users())
	if err != nil {
		return api.User{}, b.failed("Could not update user", err)
	}
	return env.Data, nil
}

func (b *Bindings) DeleteUser(ctx context.Context, id string) error {
	err := b.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := b.client.DeleteUser(ctx, id)
		return err
	}, Keys.Users())
	if err != nil {
		return b.failed("Could not delete user", err)
	}
	return nil
}

func (b *Bindings) AuditLogs(ctx context.Context) ([]api.AuditLog, error) {
	return Get(ctx, b.cache, Keys.AuditLogs(), AuditLogsPolicy, data(b.client.GetAuditLogs))
}
