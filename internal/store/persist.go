package store

import (
	"context"
	"sync"
)

// Persister is durable key-value storage for state slices.
type Persister interface {
	// Load returns the bytes saved under key. ok is false if nothing was
	// saved.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryPersister keeps state for the lifetime of the process only.
type MemoryPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = append([]byte(nil), value...)
	return nil
}

func (p *MemoryPersister) Close() error { return nil }
