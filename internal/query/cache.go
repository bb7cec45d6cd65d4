package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/insightdash/internal/api"
)

// ErrDisabled is returned by reads whose Policy.Enabled predicate is false.
// No network call is made.
var ErrDisabled = errors.New("query disabled")

// State is the lifecycle position of a cache entry.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateFresh    State = "fresh"
	StateStale    State = "stale"
	StateError    State = "error"
)

// FetchFunc performs one attempt at loading the data for a key.
type FetchFunc func(ctx context.Context) (any, error)

// Entry is a point-in-time snapshot of a cache entry.
type Entry struct {
	Key         Key
	State       State
	Data        any
	Err         error
	FetchedAt   time.Time
	Invalidated bool
	// Recovered is set when Data is an empty list substituted for a failed
	// fetch under Policy.RecoverEmpty.
	Recovered bool
}

type entry struct {
	key         Key
	data        any
	err         error
	hasData     bool
	recovered   bool
	fetchedAt   time.Time
	staleTime   time.Duration
	inFlight    int
	appliedSeq  int64
	invalidSeq  int64
	invalidated bool
}

// Manager owns every cache entry and all fetches that fill them.
//
// Thread-safety: Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	clock   *Clock
	now     NowFunc
	logger  *slog.Logger

	defaultRetry int
	defaultDelay time.Duration

	base context.Context
	stop context.CancelFunc
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNow replaces the wall clock used for staleness.
func WithNow(now NowFunc) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger for cache decisions.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithDefaultRetry sets the retry budget for policies that leave Retry
// unset.
func WithDefaultRetry(n int, delay time.Duration) ManagerOption {
	return func(m *Manager) {
		m.defaultRetry = n
		m.defaultDelay = delay
	}
}

// NewManager creates an empty cache.
func NewManager(opts ...ManagerOption) *Manager {
	base, stop := context.WithCancel(context.Background())
	m := &Manager{
		entries: make(map[string]*entry),
		clock:   NewClock(),
		now:     time.Now,
		logger:  slog.Default(),
		base:    base,
		stop:    stop,

		defaultRetry: DefaultRetry,
		defaultDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close cancels every in-flight fetch. The cache stays readable.
func (m *Manager) Close() {
	m.stop()
}

// Fetch returns the cached data for key if it is fresh. Otherwise it joins
// the in-flight fetch for key, or starts one.
//
// Cancelling ctx detaches this caller only; a shared fetch keeps running
// for the other waiters and still fills the cache.
func (m *Manager) Fetch(ctx context.Context, key Key, p Policy, fn FetchFunc) (any, error) {
	return m.fetch(ctx, key, p, fn, nil, false)
}

// Refetch is Fetch without the freshness check.
func (m *Manager) Refetch(ctx context.Context, key Key, p Policy, fn FetchFunc) (any, error) {
	return m.fetch(ctx, key, p, fn, nil, true)
}

func (m *Manager) fetch(ctx context.Context, key Key, p Policy, fn FetchFunc, empty any, force bool) (any, error) {
	if !p.enabled() {
		return nil, ErrDisabled
	}
	id := key.String()

	if !force {
		m.mu.Lock()
		if e, ok := m.entries[id]; ok && m.freshLocked(e) {
			data := e.data
			m.mu.Unlock()
			m.logger.Debug("cache hit", "key", id)
			return data, nil
		}
		m.mu.Unlock()
	}

	ch := m.group.DoChan(id, func() (any, error) {
		return m.run(ctx, key, p, fn, empty)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run performs one shared fetch, including retries, and applies the result
// if no newer fetch has been applied in the meantime.
func (m *Manager) run(callerCtx context.Context, key Key, p Policy, fn FetchFunc, empty any) (any, error) {
	id := key.String()
	ctx, cancel := context.WithCancel(context.WithoutCancel(callerCtx))
	defer cancel()
	release := context.AfterFunc(m.base, cancel)
	defer release()

	m.mu.Lock()
	seq := m.clock.Next()
	e := m.entryLocked(key)
	e.inFlight++
	m.mu.Unlock()

	m.logger.Debug("fetch started", "key", id, "seq", seq)
	data, err := m.retry(ctx, id, p, fn)

	recovered := false
	if err != nil && p.RecoverEmpty {
		m.logger.Warn("list fetch failed, resolving empty", "key", id, "error", err)
		recovered = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e = m.entryLocked(key)
	e.inFlight--
	if seq <= e.appliedSeq {
		m.logger.Debug("fetch result discarded", "key", id, "seq", seq, "applied", e.appliedSeq)
		if recovered {
			return empty, nil
		}
		return data, err
	}

	e.appliedSeq = seq
	e.staleTime = p.StaleTime
	e.fetchedAt = m.now()
	e.invalidated = seq < e.invalidSeq
	switch {
	case err == nil:
		e.data, e.err, e.hasData, e.recovered = data, nil, true, false
		return data, nil
	case recovered:
		e.data, e.err, e.hasData, e.recovered = empty, err, true, true
		return empty, nil
	default:
		e.err, e.recovered = err, false
		return nil, err
	}
}

func (m *Manager) retry(ctx context.Context, id string, p Policy, fn FetchFunc) (any, error) {
	retries, delay := p.Retry, p.RetryDelay
	if retries == 0 {
		retries, delay = m.defaultRetry, m.defaultDelay
	}
	if retries < 0 {
		retries = 0
	}

	attempt := 0
	op := func() (any, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && permanent(err) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	}
	v, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.logger.Debug("fetch retry", "key", id, "attempt", attempt, "next", next, "error", err)
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}

// permanent reports whether retrying err cannot help.
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if te, ok := api.IsTransportError(err); ok && te.ClientError() {
		return true
	}
	var pe *PayloadError
	if errors.As(err, &pe) {
		return true
	}
	var ue *api.UploadError
	if errors.As(err, &ue) {
		return ue.Kind == api.UploadCancelled || ue.Validation()
	}
	return false
}

func (m *Manager) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{key: key}
		m.entries[id] = e
	}
	return e
}

func (m *Manager) freshLocked(e *entry) bool {
	if !e.hasData || e.err != nil || e.invalidated {
		return false
	}
	return m.now().Sub(e.fetchedAt) < e.staleTime
}

// Entry returns a snapshot of the entry for key.
func (m *Manager) Entry(key Key) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key.String()]
	if !ok {
		return Entry{Key: key, State: StateIdle}
	}
	snap := Entry{
		Key:         key,
		Data:        e.data,
		Err:         e.err,
		FetchedAt:   e.fetchedAt,
		Invalidated: e.invalidated,
		Recovered:   e.recovered,
	}
	switch {
	case e.inFlight > 0:
		snap.State = StateFetching
	case e.err != nil:
		snap.State = StateError
	case !e.hasData:
		snap.State = StateIdle
	case m.freshLocked(e):
		snap.State = StateFresh
	default:
		snap.State = StateStale
	}
	return snap
}

// Invalidate marks the entries for keys stale. A fetch already in flight
// for one of them is forgotten: its waiters still get its result, but the
// next read starts a newer fetch, and the in-flight result does not make
// the entry fresh. This holds for a fetch that has been started but has
// not yet registered its entry.
func (m *Manager) Invalidate(keys ...Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.invalidateKeyLocked(k)
	}
}

func (m *Manager) invalidateKeyLocked(k Key) {
	m.invalidateLocked(m.entryLocked(k))
}

// InvalidatePrefix marks every entry whose key starts with prefix stale.
func (m *Manager) InvalidatePrefix(prefix Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.key.HasPrefix(prefix) {
			m.invalidateLocked(e)
		}
	}
}

func (m *Manager) invalidateLocked(e *entry) {
	e.invalidated = true
	e.invalidSeq = m.clock.Next()
	m.group.Forget(e.key.String())
	m.logger.Debug("cache invalidated", "key", e.key.String())
}

// SetData writes v as a fresh successful result for key, as if a fetch had
// just completed. It wins over any fetch already in flight.
func (m *Manager) SetData(key Key, v any, staleTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(key)
	e.appliedSeq = m.clock.Next()
	e.data, e.err, e.hasData, e.recovered = v, nil, true, false
	e.fetchedAt = m.now()
	e.staleTime = staleTime
	e.invalidated = false
}

// Remove drops the entry for key. A fetch in flight for it is forgotten.
func (m *Manager) Remove(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := key.String()
	if e, ok := m.entries[id]; ok && e.inFlight > 0 {
		// Keep the sequence so the in-flight result cannot resurrect data.
		*e = entry{key: key, appliedSeq: m.clock.Next(), inFlight: e.inFlight}
	} else {
		delete(m.entries, id)
	}
	m.group.Forget(id)
}

// Clear drops every entry, for example on logout.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := m.clock.Next()
	for id, e := range m.entries {
		if e.inFlight > 0 {
			*e = entry{key: e.key, appliedSeq: seq, inFlight: e.inFlight}
		} else {
			delete(m.entries, id)
		}
		m.group.Forget(id)
	}
}

// Poll refetches key every p.PollInterval, regardless of staleness, and
// hands each result to onResult. The first fetch happens immediately.
// Poll returns when ctx is done or onResult returns false.
func (m *Manager) Poll(ctx context.Context, key Key, p Policy, fn FetchFunc, onResult func(any, error) bool) error {
	if !p.enabled() {
		return ErrDisabled
	}
	if p.PollInterval <= 0 {
		return errors.New("query: poll interval must be positive")
	}

	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		v, err := m.Refetch(ctx, key, p, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !onResult(v, err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Mutate runs a one-shot write. On success every key in invalidates is
// marked stale; on failure the error is returned unchanged and nothing is
// invalidated.
func (m *Manager) Mutate(ctx context.Context, fn func(ctx context.Context) error, invalidates ...Key) error {
	if err := fn(ctx); err != nil {
		return err
	}
	m.Invalidate(invalidates...)
	return nil
}
