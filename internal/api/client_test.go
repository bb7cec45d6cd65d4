package api_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/apitest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, opts ...api.ClientOption) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t)
	tr := api.NewTransport(srv.URL, nil, api.WithLogger(quietLogger()))
	return api.NewClient(tr, opts...), srv
}

func strPtr(s string) *string { return &s }

func TestClient_Auth(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	me, err := c.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", me.Data.ID)

	orgs, err := c.GetUserOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs.Data, 2)
	assert.Equal(t, "org-1", orgs.Data[0].ID)
}

func TestClient_DashboardLifecycle(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateDashboard(ctx, api.DashboardPatch{Name: strPtr("Ops")})
	require.NoError(t, err)
	assert.Equal(t, api.StatusSuccess, created.Status)
	assert.Equal(t, "Ops", created.Data.Name)
	require.NotEmpty(t, created.Data.ID)
	assert.NotEmpty(t, created.Data.CreatedAt, "server fills the rest of the dashboard")

	got, err := c.GetDashboard(ctx, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Data.ID, got.Data.ID)

	updated, err := c.UpdateDashboard(ctx, created.Data.ID, api.DashboardPatch{Description: strPtr("on-call")})
	require.NoError(t, err)
	assert.Equal(t, "Ops", updated.Data.Name, "PATCH leaves unspecified fields alone")
	assert.Equal(t, "on-call", updated.Data.Description)

	_, err = c.DeleteDashboard(ctx, created.Data.ID)
	require.NoError(t, err)

	_, err = c.GetDashboard(ctx, created.Data.ID)
	te, ok := api.IsTransportError(err)
	require.True(t, ok, "errors bubble unchanged")
	assert.Equal(t, http.StatusNotFound, te.Status)

	assert.Equal(t, 1, srv.Hits("POST /dashboards"))
	assert.Equal(t, 1, srv.Hits("PATCH /dashboards/{id}"))
	assert.Equal(t, 1, srv.Hits("DELETE /dashboards/{id}"))
	assert.Equal(t, 2, srv.Hits("GET /dashboards/{id}"))
}

func TestClient_Datasets(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	list, err := c.GetDatasets(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list.Data)

	detail, err := c.GetDataset(ctx, list.Data[0].ID)
	require.NoError(t, err)
	assert.Equal(t, list.Data[0].ID, detail.Data.Dataset.ID)
	assert.NotEmpty(t, detail.Data.Preview.Columns)

	_, err = c.DeleteDataset(ctx, list.Data[0].ID)
	require.NoError(t, err)

	after, err := c.GetDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Data, len(list.Data)-1)
}

func TestClient_EscapesPathIDs(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.GetDashboard(context.Background(), "a/b")
	require.Error(t, err)
	// An unescaped slash would hit no route at all.
	assert.Equal(t, 1, srv.Hits("GET /dashboards/{id}"))
}

func TestClient_Analyses(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ref, err := c.CreateAnalysis(ctx, "dataset-1")
	require.NoError(t, err)
	require.NotEmpty(t, ref.Data.JobID)

	job, err := c.GetAnalysis(ctx, ref.Data.JobID)
	require.NoError(t, err)
	assert.Equal(t, "dataset-1", job.Data.DatasetID)
	assert.False(t, job.Data.Terminal())

	history, err := c.GetHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, ref.Data.JobID, history.Data[0].ID)
}

func TestClient_Admin(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateUser(ctx, api.UserPatch{Name: strPtr("Ana"), Email: strPtr("ana@acme.com")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Data.Name)

	updated, err := c.UpdateUser(ctx, created.Data.ID, api.UserPatch{Name: strPtr("Ana Lima")})
	require.NoError(t, err)
	assert.Equal(t, "ana@acme.com", updated.Data.Email)
	assert.Equal(t, "Ana Lima", updated.Data.Name)

	users, err := c.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users.Data, 4)

	_, err = c.DeleteUser(ctx, created.Data.ID)
	require.NoError(t, err)

	logs, err := c.GetAuditLogs(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, logs.Data)
}
