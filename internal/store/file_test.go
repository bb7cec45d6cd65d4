package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFilePersister_WritesStructuredYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	p, err := OpenFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, UIKey, []byte(`{"state":{"theme":"dark","language":"en"},"version":0}`)))
	require.NoError(t, p.Save(ctx, AuthKey, []byte(`{"state":{"isAuthenticated":false},"version":0}`)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "dark", doc[UIKey]["state"].(map[string]any)["theme"])
	assert.Contains(t, doc, AuthKey)

	got, ok, err := p.Load(ctx, UIKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"theme":"dark","language":"en"},"version":0}`, string(got))
}

func TestFilePersister_MissingFileIsEmpty(t *testing.T) {
	p, err := OpenFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	_, ok, err := p.Load(context.Background(), AuthKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilePersister_RejectsNonJSON(t *testing.T) {
	p, err := OpenFile(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	err = p.Save(context.Background(), UIKey, []byte("not json"))
	assert.Error(t, err)
}

func TestMemoryPersister_CopiesValues(t *testing.T) {
	p := NewMemoryPersister()
	ctx := context.Background()
	v := []byte(`{"a":1}`)

	require.NoError(t, p.Save(ctx, "k", v))
	v[0] = 'X'

	got, ok, err := p.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))
}
