package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "<prefix>-1", "<prefix>-2", ... so that ids
// assigned during a test are stable across runs and can appear in golden
// files.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. If prefix is empty, "test-id" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "test-id"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
