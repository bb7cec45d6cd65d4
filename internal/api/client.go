package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
)

// DefaultMaxUploadBytes is the upload cap used when none is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

// Client exposes one operation per remote resource/action.
//
// Operations never validate, retry or cache, and transport errors are
// returned unchanged.
type Client struct {
	transport      *Transport
	http           *http.Client
	logger         *slog.Logger
	maxUploadBytes int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxUploadBytes sets the client-side upload cap. Zero or negative
// disables the check.
func WithMaxUploadBytes(n int64) ClientOption {
	return func(c *Client) {
		c.maxUploadBytes = n
	}
}

// WithUploadHTTPClient sets the HTTP client used for uploads. Uploads
// default to the transport's client.
func WithUploadHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithClientLogger sets the logger used by upload tasks.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient wraps a Transport.
func NewClient(t *Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:      t,
		http:           t.client,
		logger:         t.logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport returns the underlying transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

func get[T any](ctx context.Context, c *Client, path string) (*Envelope[T], error) {
	var env Envelope[T]
	if err := c.transport.Do(ctx, Request{Method: http.MethodGet, Path: path}, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (*Envelope[T], error) {
	var env Envelope[T]
	if err := c.transport.Do(ctx, Request{Method: method, Path: path, Body: body}, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func item(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}

// Auth

func (c *Client) GetCurrentUser(ctx context.Context) (*Envelope[User], error) {
	return get[User](ctx, c, "/auth/me")
}

func (c *Client) GetUserOrganizations(ctx context.Context) (*Envelope[[]Organization], error) {
	return get[[]Organization](ctx, c, "/auth/organizations")
}

// Datasets

func (c *Client) GetDatasets(ctx context.Context) (*Envelope[[]Dataset], error) {
	return get[[]Dataset](ctx, c, "/datasets")
}

// GetDataset returns a dataset and its preview.
func (c *Client) GetDataset(ctx context.Context, id string) (*Envelope[DatasetDetail], error) {
	return get[DatasetDetail](ctx, c, item("/datasets", id))
}

func (c *Client) DeleteDataset(ctx context.Context, id string) (*Envelope[struct{}], error) {
	return send[struct{}](ctx, c, http.MethodDelete, item("/datasets", id), nil)
}

// Dashboards

func (c *Client) GetDashboards(ctx context.Context) (*Envelope[[]Dashboard], error) {
	return get[[]Dashboard](ctx, c, "/dashboards")
}

func (c *Client) GetDashboard(ctx context.Context, id string) (*Envelope[Dashboard], error) {
	return get[Dashboard](ctx, c, item("/dashboards", id))
}

// CreateDashboard takes a partial dashboard and returns the full created one.
func (c *Client) CreateDashboard(ctx context.Context, d DashboardPatch) (*Envelope[Dashboard], error) {
	return send[Dashboard](ctx, c, http.MethodPost, "/dashboards", d)
}

func (c *Client) UpdateDashboard(ctx context.Context, id string, d DashboardPatch) (*Envelope[Dashboard], error) {
	return send[Dashboard](ctx, c, http.MethodPatch, item("/dashboards", id), d)
}

func (c *Client) DeleteDashboard(ctx context.Context, id string) (*Envelope[struct{}], error) {
	return send[struct{}](ctx, c, http.MethodDelete, item("/dashboards", id), nil)
}

// Analyses

// CreateAnalysis queues an analysis job for a dataset.
func (c *Client) CreateAnalysis(ctx context.Context, datasetID string) (*Envelope[AnalysisRef], error) {
	body := struct {
		DatasetID string `json:"datasetId"`
	}{datasetID}
	return send[AnalysisRef](ctx, c, http.MethodPost, "/analyses", body)
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (*Envelope[AnalysisJob], error) {
	return get[AnalysisJob](ctx, c, item("/analyses", id))
}

// GetHistory lists past analysis jobs.
func (c *Client) GetHistory(ctx context.Context) (*Envelope[[]AnalysisJob], error) {
	return get[[]AnalysisJob](ctx, c, "/history")
}

// Admin

func (c *Client) GetUsers(ctx context.Context) (*Envelope[[]User], error) {
	return get[[]User](ctx, c, "/admin/users")
}

func (c *Client) CreateUser(ctx context.Context, u UserPatch) (*Envelope[User], error) {
	return send[User](ctx, c, http.MethodPost, "/admin/users", u)
}

func (c *Client) UpdateUser(ctx context.Context, id string, u UserPatch) (*Envelope[User], error) {
	return send[User](ctx, c, http.MethodPatch, item("/admin/users", id), u)
}

func (c *Client) DeleteUser(ctx context.Context, id string) (*Envelope[struct{}], error) {
	return send[struct{}](ctx, c, http.MethodDelete, item("/admin/users", id), nil)
}

func (c *Client) GetAuditLogs(ctx context.Context) (*Envelope[[]AuditLog], error) {
	return get[[]AuditLog](ctx, c, "/admin/audit-logs")
}
