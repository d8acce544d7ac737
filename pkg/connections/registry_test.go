package connections

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	name string
}

func (o *testObserver) Send([]byte) error {
	return nil
}

func TestRegisterReplaces(t *testing.T) {
	registry := NewRegistry()
	c1 := &testObserver{"c1"}
	c2 := &testObserver{"c2"}

	_, replaced := registry.Register("tok", c1)
	assert.False(t, replaced)

	previous, replaced := registry.Register("tok", c2)
	assert.True(t, replaced)
	assert.Same(t, c1, previous)

	entries := registry.ListActive()
	require.Len(t, entries, 1)
	assert.Equal(t, "tok", entries[0].Token)
	assert.Same(t, c2, entries[0].Observer)
}

func TestUnregister(t *testing.T) {
	registry := NewRegistry()
	registry.Register("tok", &testObserver{})

	registry.Unregister("tok")
	registry.Unregister("tok")
	registry.Unregister("never-registered")

	assert.Equal(t, 0, registry.Len())
	_, exists := registry.Get("tok")
	assert.False(t, exists)
}

func TestReleaseOnlyRemovesOwnEntry(t *testing.T) {
	registry := NewRegistry()
	c1 := &testObserver{"c1"}
	c2 := &testObserver{"c2"}

	registry.Register("tok", c1)
	registry.Register("tok", c2)

	assert.False(t, registry.Release("tok", c1))
	current, exists := registry.Get("tok")
	require.True(t, exists)
	assert.Same(t, c2, current)

	assert.True(t, registry.Release("tok", c2))
	assert.False(t, registry.Release("tok", c2))
	assert.Equal(t, 0, registry.Len())
}

func TestListActiveIsSnapshot(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 10; i++ {
		registry.Register(fmt.Sprintf("tok-%d", i), &testObserver{})
	}

	entries := registry.ListActive()
	for _, entry := range entries {
		registry.Unregister(entry.Token)
	}

	assert.Len(t, entries, 10)
	assert.Equal(t, 0, registry.Len())
}

func TestConcurrentRegisterUnregisterList(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(3)
		token := fmt.Sprintf("tok-%d", i%100)

		go func() {
			defer wg.Done()
			observer := &testObserver{}
			registry.Register(token, observer)
			registry.Release(token, observer)
		}()
		go func() {
			defer wg.Done()
			registry.Unregister(token)
		}()
		go func() {
			defer wg.Done()
			for _, entry := range registry.ListActive() {
				assert.NotNil(t, entry.Observer)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, registry.Len(), 100)
}
