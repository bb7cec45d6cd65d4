package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/insightdash/internal/api"
)

// Keys under which persisted slices are saved.
const (
	AuthKey = "auth-storage"
	UIKey   = "ui-storage"
)

// DefaultSuccessTTL is how long a success notification stays queued.
const DefaultSuccessTTL = 5 * time.Second

var (
	ErrUnknownOrganization = errors.New("organization is not available to this user")
	ErrInvalidTheme        = errors.New("theme must be light, dark or system")
	ErrUnsupportedLanguage = errors.New("language must be pt-BR or en")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// Session is the authenticated user and the organization they act in.
type Session struct {
	User            *api.User          `json:"user"`
	CurrentOrg      *api.Organization  `json:"currentOrg"`
	Organizations   []api.Organization `json:"organizations"`
	IsAuthenticated bool               `json:"isAuthenticated"`
	Token           string             `json:"token,omitempty"`
}

// Preferences are the persisted UI settings.
type Preferences struct {
	Theme            string `json:"theme"`
	Language         string `json:"language"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
}

// DefaultPreferences returns the preferences of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "system", Language: "pt-BR"}
}

// envelope is the on-disk wrapper of a persisted slice.
type envelope[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// State is the client-side application state: session, preferences,
// notifications and feature flags. It is created once with Open and passed
// by pointer. All mutation goes through its methods.
//
// Session and preferences are saved to the Persister after every change.
// Notifications and flags live in memory only.
//
// Thread-safety: State is safe for concurrent use.
type State struct {
	mu      sync.Mutex
	persist Persister
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	session Session
	prefs   Preferences

	notifications []Notification
	timers        map[string]*time.Timer
	successTTL    time.Duration

	flags map[string]bool
}

// Option configures a State.
type Option func(*State)

func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}

// WithNow replaces the clock used for notification timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// WithIDGenerator replaces the notification id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *State) {
		s.newID = gen
	}
}

// WithSuccessTTL changes how long success notifications stay queued.
func WithSuccessTTL(d time.Duration) Option {
	return func(s *State) {
		s.successTTL = d
	}
}

// Open creates the state and rehydrates session and preferences from p.
// A slice that cannot be decoded is logged and replaced by its defaults.
func Open(ctx context.Context, p Persister, opts ...Option) (*State, error) {
	s := &State{
		persist:    p,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      newUUID,
		prefs:      DefaultPreferences(),
		timers:     make(map[string]*time.Timer),
		successTTL: DefaultSuccessTTL,
		flags:      DefaultFlags(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := rehydrate(ctx, s, AuthKey, &s.session); err != nil {
		return nil, err
	}
	if err := rehydrate(ctx, s, UIKey, &s.prefs); err != nil {
		return nil, err
	}
	return s, nil
}

func rehydrate[T any](ctx context.Context, s *State, key string, dst *T) error {
	raw, ok, err := s.persist.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("rehydrate %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("discarding unreadable persisted state", "key", key, "error", err)
		return nil
	}
	*dst = env.State
	return nil
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Close stops pending notification timers and closes the persister.
func (s *State) Close() error {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.persist.Close()
}

// saveLocked writes one slice. Callers hold s.mu so saves land in the
// order the changes were made.
func saveLocked[T any](ctx context.Context, s *State, key string, v T) error {
	raw, err := json.Marshal(envelope[T]{State: v})
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	if err := s.persist.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
