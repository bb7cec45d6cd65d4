package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept on the error.
const maxErrorBody = 4 << 10

// TokenFunc resolves the current bearer token. It may block (e.g. on a
// refresh call). An empty token means the request is sent unauthenticated.
type TokenFunc func(ctx context.Context) (string, error)

// NoToken is the TokenFunc used in offline/mock mode.
func NoToken(context.Context) (string, error) { return "", nil }

// Request describes one call through the Transport.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. "/dashboards".
	Path string
	// Body is marshaled as JSON when non-nil.
	Body any
	// Header overrides the defaults (Content-Type, Authorization).
	Header http.Header
}

// Transport performs single JSON requests against the API base URL.
//
// Thread-safety: Transport is safe for concurrent use.
type Transport struct {
	baseURL string
	token   TokenFunc
	client  *http.Client
	logger  *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = c
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = l
	}
}

// NewTransport creates a Transport. An empty baseURL means same-origin:
// paths are sent as given. A nil token func sends every request
// unauthenticated.
func NewTransport(baseURL string, token TokenFunc, opts ...TransportOption) *Transport {
	if token == nil {
		token = NoToken
	}
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseURL returns the configured base URL (possibly empty).
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// URL resolves an endpoint path against the base URL.
func (t *Transport) URL(path string) string {
	if t.baseURL == "" {
		return path
	}
	return t.baseURL + path
}

// Do issues the request and decodes the response body into out (which may
// be nil to discard it). It never retries.
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	url := t.URL(req.Path)

	err := t.do(ctx, method, url, req, out)
	if err != nil {
		t.logger.Error("API request failed",
			"method", method,
			"url", url,
			"error", err,
		)
	}
	return err
}

func (t *Transport) do(ctx context.Context, method, url string, req Request, out any) error {
	token, err := t.token(ctx)
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: fmt.Errorf("resolve token: %w", err)}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return &TransportError{Method: method, URL: url, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: err}
	}
	httpReq.Header = buildHeader(token, req.Header)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			Method:     method,
			URL:        url,
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Body:       raw,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: url, Status: resp.StatusCode, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Method: method, URL: url, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// buildHeader merges defaults with caller overrides. Overrides win.
func buildHeader(token string, overrides http.Header) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range overrides {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// statusText returns the reason phrase the server sent, falling back to
// the canonical text for the code.
func statusText(resp *http.Response) string {
	// resp.Status is "404 Not Found"
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
