package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/apitest"
	"github.com/roach88/insightdash/internal/config"
)

// slowReader hands out chunk bytes per Read, pausing before each one.
type slowReader struct {
	r     io.Reader
	chunk int
	pause time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.pause)
	if len(p) > s.chunk {
		p = p[:s.chunk]
	}
	return s.r.Read(p)
}

func testConfig(baseURL string, timeout time.Duration) config.Config {
	return config.Config{APIBaseURL: baseURL, UploadMaxMB: 50, RequestTimeout: timeout}
}

func TestNewAPIClient_UploadOutlivesRequestTimeout(t *testing.T) {
	srv := apitest.NewServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := newAPIClient(testConfig(srv.URL, 150*time.Millisecond), nil, logger)

	const size = 96 << 10
	body := &slowReader{
		r:     bytes.NewReader(bytes.Repeat([]byte("a,b\n"), size/4)),
		chunk: 4 << 10,
		pause: 20 * time.Millisecond,
	}

	var last int
	task := c.UploadDataset(context.Background(), api.UploadFile{
		Name:        "slow.csv",
		ContentType: "text/csv",
		Size:        size,
		Reader:      body,
	}, api.UploadOptions{
		OnProgress: func(loaded, total int64, percentage int) { last = percentage },
	})
	for range task.Progress() {
	}
	res, err := task.Wait()
	require.NoError(t, err)
	assert.NotEmpty(t, res.Data.DatasetID)
	assert.Equal(t, 100, last)
}

func TestNewAPIClient_RequestsStillTimeOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := newAPIClient(testConfig(srv.URL, 50*time.Millisecond), nil, logger)

	_, err := c.GetDashboards(context.Background())
	require.Error(t, err)
	var te *api.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestUploadHTTPClient(t *testing.T) {
	h := uploadHTTPClient(time.Second)
	assert.Zero(t, h.Timeout, "upload bodies are not bounded end to end")
	tr, ok := h.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, time.Second, tr.ResponseHeaderTimeout)
}
