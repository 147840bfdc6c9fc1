package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsComponentsInReverseOrder(t *testing.T) {
	m := NewManager(nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.Register("memory", record("memory"))
	m.Register("timing", record("timing"))
	m.Register("display", record("display"))

	m.Shutdown()

	assert.Equal(t, []string{"display", "timing", "memory"}, order)
	assert.Error(t, m.Context().Err())
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	calls := 0
	m.Register("counter", Func(func() { calls++ }))

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 1, calls)
}

func TestShutdownSkipsHungComponent(t *testing.T) {
	m := NewManager(nil)
	m.SetTimeout(20 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	reached := false
	m.Register("first", Func(func() { reached = true }))
	m.Register("hung", Func(func() { <-release }))

	start := time.Now()
	m.Shutdown()

	assert.True(t, reached)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShutdownRecoversPanics(t *testing.T) {
	m := NewManager(nil)
	reached := false
	m.Register("first", Func(func() { reached = true }))
	m.Register("panics", Func(func() { panic("boom") }))

	assert.NotPanics(t, m.Shutdown)
	assert.True(t, reached)
}
