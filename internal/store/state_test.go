package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/testutil"
)

var (
	acme      = api.Organization{ID: "org-1", Name: "Acme Corporation", Plan: "enterprise"}
	techstart = api.Organization{ID: "org-2", Name: "TechStart Ltd", Plan: "pro"}
	joao      = api.User{ID: "user-1", Name: "Joao Silva", Email: "joao.silva@acme.com", OrgID: "org-1"}
)

func openTestState(t *testing.T, p Persister, opts ...Option) *State {
	t.Helper()
	s, err := Open(context.Background(), p, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestState_Defaults(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())

	assert.Equal(t, DefaultPreferences(), s.Preferences())
	assert.Equal(t, "system", s.Preferences().Theme)
	assert.Equal(t, "pt-BR", s.Preferences().Language)
	assert.False(t, s.Session().IsAuthenticated)
	assert.Empty(t, s.Notifications())
}

func TestState_RehydratesAcrossReopen(t *testing.T) {
	persisters := map[string]func(t *testing.T) (open func() Persister){
		"sqlite": func(t *testing.T) func() Persister {
			path := filepath.Join(t.TempDir(), "state.db")
			return func() Persister {
				p, err := OpenSQLite(path)
				require.NoError(t, err)
				return p
			}
		},
		"yaml": func(t *testing.T) func() Persister {
			path := filepath.Join(t.TempDir(), "state.yaml")
			return func() Persister {
				p, err := OpenFile(path)
				require.NoError(t, err)
				return p
			}
		},
	}

	for name, setup := range persisters {
		t.Run(name, func(t *testing.T) {
			open := setup(t)
			ctx := context.Background()

			s, err := Open(ctx, open())
			require.NoError(t, err)
			require.NoError(t, s.Login(ctx, joao, acme, []api.Organization{acme, techstart}, "tok-1"))
			require.NoError(t, s.SwitchOrganization(ctx, "org-2"))
			require.NoError(t, s.SetTheme(ctx, "dark"))
			require.NoError(t, s.SetLanguage(ctx, "en-US"))
			require.NoError(t, s.SetSidebarCollapsed(ctx, true))
			s.AddNotification(Notification{Type: TypeError, Title: "Boom"})
			s.SetFlags(map[string]bool{FlagBilling: true})
			require.NoError(t, s.Close())

			again, err := Open(ctx, open())
			require.NoError(t, err)
			defer again.Close()

			sess := again.Session()
			assert.True(t, sess.IsAuthenticated)
			require.NotNil(t, sess.User)
			assert.Equal(t, "user-1", sess.User.ID)
			require.NotNil(t, sess.CurrentOrg)
			assert.Equal(t, "org-2", sess.CurrentOrg.ID)
			assert.Len(t, sess.Organizations, 2)
			assert.Equal(t, Preferences{Theme: "dark", Language: "en", SidebarCollapsed: true}, again.Preferences())

			assert.Empty(t, again.Notifications(), "notifications are never persisted")
			assert.False(t, again.FeatureEnabled(FlagBilling), "flags are never persisted")

			token, err := again.TokenFunc()(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", token)
		})
	}
}

func TestState_PersistedEnvelopeShape(t *testing.T) {
	p := NewMemoryPersister()
	s := openTestState(t, p)
	ctx := context.Background()

	require.NoError(t, s.SetTheme(ctx, "light"))

	raw, ok, err := p.Load(ctx, UIKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"theme":"light","language":"pt-BR","sidebarCollapsed":false},"version":0}`, string(raw))
}

func TestState_UnreadablePersistedSliceFallsBackToDefaults(t *testing.T) {
	p := NewMemoryPersister()
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, UIKey, []byte("{broken")))

	s := openTestState(t, p)
	assert.Equal(t, DefaultPreferences(), s.Preferences())
}

type failingPersister struct {
	MemoryPersister
	err error
}

func (f *failingPersister) Load(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }

func TestState_OpenSurfacesPersisterErrors(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := Open(context.Background(), &failingPersister{err: boom})
	assert.ErrorIs(t, err, boom)
}

// refusingPersister rejects saves once refuse is set.
type refusingPersister struct {
	Persister
	refuse bool
}

var errSaveRefused = errors.New("save refused")

func (r *refusingPersister) Save(ctx context.Context, key string, value []byte) error {
	if r.refuse {
		return errSaveRefused
	}
	return r.Persister.Save(ctx, key, value)
}

func TestState_FailedSaveKeepsPreviousState(t *testing.T) {
	p := &refusingPersister{Persister: NewMemoryPersister()}
	s := openTestState(t, p)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, joao, acme, []api.Organization{acme, techstart}, "tok"))
	require.NoError(t, s.SetTheme(ctx, "dark"))
	before := s.Session()

	p.refuse = true
	assert.ErrorIs(t, s.SwitchOrganization(ctx, "org-2"), errSaveRefused)
	assert.Equal(t, before, s.Session())

	assert.ErrorIs(t, s.Logout(ctx), errSaveRefused)
	assert.True(t, s.Session().IsAuthenticated)

	assert.ErrorIs(t, s.Login(ctx, joao, techstart, []api.Organization{techstart}, "tok-2"), errSaveRefused)
	assert.Equal(t, before, s.Session())

	assert.ErrorIs(t, s.SetTheme(ctx, "light"), errSaveRefused)
	assert.ErrorIs(t, s.SetSidebarCollapsed(ctx, true), errSaveRefused)
	assert.Equal(t, "dark", s.Preferences().Theme)
	assert.False(t, s.Preferences().SidebarCollapsed)

	// Memory and storage still agree after reopening.
	p.refuse = false
	reopened := openTestState(t, p.Persister)
	assert.Equal(t, before, reopened.Session())
	assert.Equal(t, s.Preferences(), reopened.Preferences())
}

func TestState_LogoutClearsSession(t *testing.T) {
	p := NewMemoryPersister()
	s := openTestState(t, p)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, joao, acme, nil, "tok"))

	require.NoError(t, s.Logout(ctx))

	assert.Equal(t, Session{}, s.Session())
	token, err := s.TokenFunc()(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	raw, _, err := p.Load(ctx, AuthKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"user":null,"currentOrg":null,"organizations":null,"isAuthenticated":false},"version":0}`, string(raw))
}

func TestState_SwitchOrganization(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())
	ctx := context.Background()

	assert.ErrorIs(t, s.SwitchOrganization(ctx, "org-1"), ErrNotAuthenticated)

	require.NoError(t, s.Login(ctx, joao, acme, []api.Organization{acme}, "tok"))
	assert.ErrorIs(t, s.SwitchOrganization(ctx, "org-2"), ErrUnknownOrganization)
	assert.Equal(t, "org-1", s.Session().CurrentOrg.ID)
}

func TestState_LoginRequiresOrgMembership(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())
	err := s.Login(context.Background(), joao, techstart, []api.Organization{acme}, "tok")
	assert.ErrorIs(t, err, ErrUnknownOrganization)
	assert.False(t, s.Session().IsAuthenticated)
}

func TestState_SessionIsACopy(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())
	require.NoError(t, s.Login(context.Background(), joao, acme, nil, "tok"))

	snap := s.Session()
	snap.User.Name = "changed"
	snap.Organizations[0].Name = "changed"

	assert.Equal(t, "Joao Silva", s.Session().User.Name)
	assert.Equal(t, "Acme Corporation", s.Session().Organizations[0].Name)
}

func TestState_Preferences(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())
	ctx := context.Background()

	assert.ErrorIs(t, s.SetTheme(ctx, "solarized"), ErrInvalidTheme)
	assert.ErrorIs(t, s.SetLanguage(ctx, "fr"), ErrUnsupportedLanguage)
	assert.ErrorIs(t, s.SetLanguage(ctx, "???"), ErrUnsupportedLanguage)
	assert.Equal(t, DefaultPreferences(), s.Preferences())
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pt-BR", "pt-BR"},
		{"pt", "pt-BR"},
		{"en", "en"},
		{"en-GB", "en"},
		{"en-US", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifications_AssignIDAndTimestamp(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	ids := testutil.NewSequentialIDs("n")
	s := openTestState(t, NewMemoryPersister(), WithNow(clock.Now), WithIDGenerator(ids.Next))

	first := s.AddNotification(Notification{Type: TypeError, Title: "Upload failed", Message: "HTTP 500"})
	clock.Advance(time.Second)
	second := s.AddNotification(Notification{Type: TypeInfo, Title: "Heads up"})

	assert.Equal(t, "n-1", first.ID)
	assert.Equal(t, "n-2", second.ID)
	assert.Equal(t, clock.Now().Add(-time.Second), first.Timestamp)

	assert.Equal(t, []Notification{first, second}, s.Notifications())

	s.RemoveNotification("n-1")
	s.RemoveNotification("missing")
	assert.Equal(t, []Notification{second}, s.Notifications())

	s.ClearNotifications()
	assert.Empty(t, s.Notifications())
}

func TestNotifications_DefaultIDsAreUnique(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())
	a := s.AddNotification(Notification{Type: TypeInfo})
	b := s.AddNotification(Notification{Type: TypeInfo})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNotifications_SuccessExpires(t *testing.T) {
	s := openTestState(t, NewMemoryPersister(), WithSuccessTTL(20*time.Millisecond))

	s.Notify(TypeSuccess, "Upload complete", "sales.csv was uploaded")
	kept := s.AddNotification(Notification{Type: TypeError, Title: "Failed"})
	require.Len(t, s.Notifications(), 2)

	require.Eventually(t, func() bool { return len(s.Notifications()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, kept.ID, s.Notifications()[0].ID, "non-success notifications stay until dismissed")
}

func TestNotifications_DefaultTTL(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultSuccessTTL)
}

func TestFlags(t *testing.T) {
	s := openTestState(t, NewMemoryPersister())

	assert.False(t, s.FeatureEnabled(FlagBilling))
	assert.True(t, s.FeatureEnabled(FlagAdvancedAnalytics))
	assert.False(t, s.FeatureEnabled("unknown"))

	s.SetFlags(map[string]bool{FlagBilling: true, FlagExportToPDF: false})
	assert.True(t, s.FeatureEnabled(FlagBilling))
	assert.False(t, s.FeatureEnabled(FlagExportToPDF))
	assert.True(t, s.FeatureEnabled(FlagTeamCollaboration), "unmentioned flags keep their value")

	names, values := s.Flags()
	assert.Len(t, names, 8)
	assert.Equal(t, FlagAdvancedAnalytics, names[0])
	assert.True(t, values[FlagBilling])
}
