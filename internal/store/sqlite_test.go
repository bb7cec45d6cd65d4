package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) (*SQLitePersister, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	p, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, path
}

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	_, path := openTestSQLite(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	for i := 0; i < 3; i++ {
		p, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		p.Close()
	}

	p, err := OpenSQLite(path)
	require.NoError(t, err)
	defer p.Close()

	var name string
	err = p.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&name)
	assert.NoError(t, err, "kv table must survive repeated opens")
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	p, _ := openTestSQLite(t)

	tests := []struct {
		pragma   string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			if err := p.verifyPragma(tt.pragma, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpenSQLite_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = OpenSQLite(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestSQLitePersister_SaveLoad(t *testing.T) {
	p, _ := openTestSQLite(t)
	ctx := context.Background()

	_, ok, err := p.Load(ctx, AuthKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Save(ctx, AuthKey, []byte(`{"v":1}`)))
	require.NoError(t, p.Save(ctx, AuthKey, []byte(`{"v":2}`)))

	got, ok, err := p.Load(ctx, AuthKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(got))

	rev, err := p.revision(AuthKey)
	require.NoError(t, err)
	assert.Equal(t, 2, rev)
}
