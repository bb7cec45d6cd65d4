package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_ZeroStartIsFixed(t *testing.T) {
	a := NewFakeClock(time.Time{})
	b := NewFakeClock(time.Time{})
	assert.Equal(t, a.Now(), b.Now())
	assert.False(t, a.Now().IsZero())
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	c := NewFakeClock(time.Time{})
	start := c.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(50*time.Second), c.Now())
}
