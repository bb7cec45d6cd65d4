package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"

	"github.com/google/uuid"
)

// uploadField is the multipart field the upload endpoint reads.
const uploadField = "file"

// progressBuffer bounds the progress channel. Ticks beyond it are dropped.
const progressBuffer = 32

// UploadFile is the payload of a dataset upload.
type UploadFile struct {
	Name        string
	ContentType string
	// Size is the byte length of Reader. Zero means unknown, in which case
	// no progress is reported.
	Size   int64
	Reader io.Reader
}

// ProgressFunc observes upload progress. It runs on the upload goroutine
// and must not block.
type ProgressFunc func(loaded, total int64, percentage int)

// UploadOptions configures a single upload.
type UploadOptions struct {
	OnProgress ProgressFunc
}

// UploadTask is an in-flight dataset upload.
//
// The task starts when created and ends exactly once, with a result or an
// error. Progress ticks arrive on Progress(); that channel is closed before
// Done() is closed. Progress is best-effort: the last tick may be below 100
// even for a successful upload.
//
// Thread-safety: all methods are safe for concurrent use.
type UploadTask struct {
	id       string
	file     string
	progress chan UploadProgress
	done     chan struct{}
	cancel   context.CancelFunc

	mu     sync.Mutex
	result *Envelope[UploadResult]
	err    error
}

// ID returns the task's unique identifier.
func (t *UploadTask) ID() string { return t.id }

// FileName returns the name of the file being uploaded.
func (t *UploadTask) FileName() string { return t.file }

// Progress returns the progress stream. It is closed when the transfer ends.
func (t *UploadTask) Progress() <-chan UploadProgress { return t.progress }

// Done is closed once the result is available.
func (t *UploadTask) Done() <-chan struct{} { return t.done }

// Cancel aborts the transfer. Wait then returns an error matching
// ErrUploadCancelled unless the upload had already completed.
func (t *UploadTask) Cancel() { t.cancel() }

// Wait blocks until the task ends and returns its outcome.
func (t *UploadTask) Wait() (*Envelope[UploadResult], error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

func (t *UploadTask) finish(res *Envelope[UploadResult], err error) {
	t.mu.Lock()
	t.result, t.err = res, err
	t.mu.Unlock()
	close(t.done)
}

// UploadDataset starts a multipart upload of file to POST /upload.
//
// Cancelling ctx or calling Cancel on the returned task aborts the
// transfer with an UploadCancelled error.
func (c *Client) UploadDataset(ctx context.Context, file UploadFile, opts UploadOptions) *UploadTask {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &UploadTask{
		id:       uuid.Must(uuid.NewV7()).String(),
		file:     file.Name,
		progress: make(chan UploadProgress, progressBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	if c.maxUploadBytes > 0 && file.Size > c.maxUploadBytes {
		close(t.progress)
		t.finish(nil, &UploadError{
			Kind: UploadTooLarge,
			Err:  fmt.Errorf("file %s is larger than %d bytes", file.Name, c.maxUploadBytes),
		})
		cancel()
		return t
	}

	go func() {
		defer cancel()
		res, err := c.runUpload(taskCtx, t, file, opts)
		if err != nil {
			if IsUploadCancelled(err) {
				c.logger.Info("upload cancelled", "task", t.id, "file", file.Name)
			} else {
				c.logger.Error("upload failed", "task", t.id, "file", file.Name, "error", err)
			}
		}
		t.finish(res, err)
	}()
	return t
}

func (c *Client) runUpload(ctx context.Context, t *UploadTask, file UploadFile, opts UploadOptions) (*Envelope[UploadResult], error) {
	// Progress is only sent from the writer goroutine; it is closed once
	// that goroutine has exited, before the result is published.
	writerDone := make(chan struct{})
	defer func() {
		<-writerDone
		close(t.progress)
	}()

	token, err := c.transport.token(ctx)
	if err != nil {
		close(writerDone)
		if ctx.Err() != nil {
			return nil, &UploadError{Kind: UploadCancelled, Err: ctx.Err()}
		}
		return nil, &UploadError{Kind: UploadNetwork, Err: fmt.Errorf("resolve token: %w", err)}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer close(writerDone)
		pw.CloseWithError(writeMultipart(mw, file, t.progress, opts.OnProgress))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transport.URL("/upload"), pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, &UploadError{Kind: UploadNetwork, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	// Unblocks the writer if the transport stopped reading early.
	pr.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, &UploadError{Kind: UploadCancelled, Err: ctx.Err()}
		}
		return nil, &UploadError{Kind: UploadNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &UploadError{Kind: UploadCancelled, Err: ctx.Err()}
		}
		return nil, &UploadError{Kind: UploadNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UploadError{
			Kind:       UploadFailed,
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	var env Envelope[UploadResult]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &UploadError{Kind: InvalidResponse, Status: resp.StatusCode, Err: err}
	}
	return &env, nil
}

func writeMultipart(mw *multipart.Writer, file UploadFile, ch chan<- UploadProgress, fn ProgressFunc) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	r := &progressReader{r: file.Reader, total: file.Size, ch: ch, fn: fn}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// progressReader reports bytes read from the file. Percentages never
// decrease and never exceed 100.
type progressReader struct {
	r       io.Reader
	total   int64
	loaded  int64
	lastPct int
	ch      chan<- UploadProgress
	fn      ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.report()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.total <= 0 {
		return
	}
	loaded := min(p.loaded, p.total)
	pct := percentage(loaded, p.total)
	if pct < p.lastPct {
		pct = p.lastPct
	}
	p.lastPct = pct

	if p.fn != nil {
		p.fn(loaded, p.total, pct)
	}
	select {
	case p.ch <- UploadProgress{Loaded: loaded, Total: p.total, Percentage: pct}:
	default:
	}
}

func percentage(loaded, total int64) int {
	pct := int(math.Round(float64(loaded) / float64(total) * 100))
	return max(0, min(100, pct))
}

