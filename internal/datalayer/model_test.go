package datalayer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_GetSetMerge(t *testing.T) {
	m := NewModel()

	_, ok := m.Get("missing")
	assert.False(t, ok)

	m.Set("client_id", "abc")
	m.Merge(map[string]any{"client_id": "def", "page": "/cart"})

	v, ok := m.Get("client_id")
	require.True(t, ok)
	assert.Equal(t, "def", v)

	snap := m.Snapshot()
	assert.Equal(t, map[string]any{"client_id": "def", "page": "/cart"}, snap)

	snap["page"] = "mutated"
	v, _ = m.Get("page")
	assert.Equal(t, "/cart", v, "snapshot must be a copy")
}

func TestHelper_ModelIsSharedAcrossHandlers(t *testing.T) {
	l := NewLog()
	m := NewModel()
	h := NewHelper(WithModel(m))

	h.RegisterProcessor("remember", func(model *Model, args []any) error {
		model.Set(args[0].(string), args[1])
		return nil
	})

	var got any
	h.RegisterProcessor("recall", func(model *Model, args []any) error {
		got, _ = model.Get(args[0].(string))
		return nil
	})

	require.NoError(t, l.Push("remember", "k", 7))
	require.NoError(t, l.Push("recall", "k"))
	require.NoError(t, h.Attach(l))

	assert.Equal(t, 7, got)
	assert.Same(t, m, h.Model())
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	const goroutines = 10
	const perG = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perG)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				v := c.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perG, "every value must be unique")
	assert.Equal(t, int64(goroutines*perG), c.Current())
}

func TestCommand_Arg(t *testing.T) {
	c := Command{Name: "set", Args: []any{"k", 1}}
	assert.Equal(t, "k", c.Arg(0))
	assert.Equal(t, 1, c.Arg(1))
	assert.Nil(t, c.Arg(2))
	assert.Nil(t, c.Arg(-1))
}
