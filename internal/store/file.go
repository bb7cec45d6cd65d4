package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FilePersister keeps every slice in one human-editable YAML document.
// Slices are stored as structured YAML, not as embedded JSON strings.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// OpenFile returns a persister backed by path. The file is created on the
// first Save.
func OpenFile(path string) (*FilePersister, error) {
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FilePersister{path: path}, nil
}

func (p *FilePersister) read() (map[string]any, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.path, err)
	}
	return doc, nil
}

func (p *FilePersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	return out, true, nil
}

// Save rewrites the document with value under key. The write goes to a
// temporary file that is renamed over the original.
func (p *FilePersister) Save(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.read()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return fmt.Errorf("save %q: value is not JSON: %w", key, err)
	}
	doc[key] = v

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".insightdash-*.yaml")
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *FilePersister) Close() error { return nil }
