package datalayer

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a handler that appends "name:arg0" for every call.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string) Handler {
	return func(_ *Model, args []any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, fmt.Sprintf("%s:%v", name, firstArg(args)))
		return nil
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func newRecordingHelper(names ...string) (*Helper, *recorder) {
	rec := &recorder{}
	h := NewHelper()
	for _, n := range names {
		h.RegisterProcessor(n, rec.handler(n))
	}
	return h, rec
}

func TestLog_PushBeforeAttachOnlyRecords(t *testing.T) {
	l := NewLog()
	_, rec := newRecordingHelper("a")

	require.NoError(t, l.Push("a", 1))
	require.NoError(t, l.Push("a", 2))

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 2, l.Pending())
	assert.False(t, l.Attached())
	assert.Empty(t, rec.snapshot())
}

func TestLog_AttachDrainsBacklogInOrder(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("a", "b")

	require.NoError(t, l.Push("a", 1))
	require.NoError(t, l.Push("b", 2))
	require.NoError(t, l.Push("a", 3))

	require.NoError(t, h.Attach(l))

	assert.Equal(t, []string{"a:1", "b:2", "a:3"}, rec.snapshot())
	assert.Zero(t, l.Pending())
	assert.True(t, l.Attached())
}

func TestLog_PushAfterAttachDispatchesInline(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("a")
	require.NoError(t, h.Attach(l))

	require.NoError(t, l.Push("a", "x"))
	assert.Equal(t, []string{"a:x"}, rec.snapshot(), "dispatch must complete before Push returns")

	require.NoError(t, l.Push("a", "y"))
	assert.Equal(t, []string{"a:x", "a:y"}, rec.snapshot())
}

func TestLog_SeqFollowsAppendOrder(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Push("a"))
	require.NoError(t, l.PushCommand(Command{Name: "b", Seq: 99}))

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(2), entries[1].Seq, "Seq is restamped by the log")
}

func TestLog_ArgsAreCopiedOnPush(t *testing.T) {
	l := NewLog()
	args := []any{"k", 1}
	require.NoError(t, l.PushCommand(Command{Name: "set", Args: args}))
	args[0] = "mutated"

	assert.Equal(t, "k", l.Entries()[0].Arg(0))
}

func TestAttach_Idempotent(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("a")

	require.NoError(t, l.Push("a", 1))
	require.NoError(t, h.Attach(l))
	require.NoError(t, h.Attach(l))

	other, otherRec := newRecordingHelper("a")
	require.NoError(t, other.Attach(l))

	require.NoError(t, l.Push("a", 2))

	assert.Equal(t, []string{"a:1", "a:2"}, rec.snapshot())
	assert.Empty(t, otherRec.snapshot(), "second helper must not take over the log")
}

func TestDispatch_UnknownCommandIgnored(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("a")
	require.NoError(t, h.Attach(l))

	require.NoError(t, l.Push("future_command", 1))
	require.NoError(t, l.Push("a", 2))

	assert.Equal(t, []string{"a:2"}, rec.snapshot())
}

func TestDispatch_RegistrationFromHandler(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper()
	h.RegisterProcessor("config", func(_ *Model, _ []any) error {
		h.RegisterProcessor("event", rec.handler("event"))
		return nil
	})

	require.NoError(t, l.Push("event", "dropped"))
	require.NoError(t, l.Push("config"))
	require.NoError(t, l.Push("event", "kept"))
	require.NoError(t, h.Attach(l))

	assert.Equal(t, []string{"event:kept"}, rec.snapshot())
	assert.True(t, h.Registered("event"))
}

func TestDispatch_ReentrantPushRunsAfterCurrent(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("b")
	h.RegisterProcessor("a", func(m *Model, args []any) error {
		require.NoError(t, l.Push("b", "from-a"))
		return rec.handler("a")(m, args)
	})
	require.NoError(t, h.Attach(l))

	require.NoError(t, l.Push("a", 1))

	assert.Equal(t, []string{"a:1", "b:from-a"}, rec.snapshot())
	assert.Equal(t, 2, l.Len())
}

func TestDispatch_ErrorIsolation(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("ok")
	boom := errors.New("boom")
	h.RegisterProcessor("bad", func(*Model, []any) error { return boom })

	require.NoError(t, l.Push("ok", 1))
	require.NoError(t, l.Push("bad", 2))
	require.NoError(t, l.Push("ok", 3))

	err := h.Attach(l)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bad", de.Command.Name)
	assert.Equal(t, int64(2), de.Command.Seq)

	assert.Equal(t, []string{"ok:1", "ok:3"}, rec.snapshot())

	// The log keeps working after a failure.
	require.NoError(t, l.Push("ok", 4))
	assert.Equal(t, []string{"ok:1", "ok:3", "ok:4"}, rec.snapshot())
}

func TestDispatch_PanicIsolation(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("ok")
	h.RegisterProcessor("panics", func(*Model, []any) error { panic("nil factory") })
	require.NoError(t, h.Attach(l))

	err := l.Push("panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic: nil factory")

	require.NoError(t, l.Push("ok", 1))
	assert.Equal(t, []string{"ok:1"}, rec.snapshot())
}

func TestFailedCommands(t *testing.T) {
	l := NewLog()
	h, _ := newRecordingHelper()
	h.RegisterProcessor("bad", func(*Model, []any) error { return errors.New("x") })

	require.NoError(t, l.Push("bad", 1))
	require.NoError(t, l.Push("bad", 2))
	err := h.Attach(l)

	failed := FailedCommands(err)
	require.Len(t, failed, 2)
	assert.Equal(t, int64(1), failed[0].Seq)
	assert.Equal(t, int64(2), failed[1].Seq)
	assert.Nil(t, FailedCommands(nil))
}

func TestHelper_UnregisterProcessor(t *testing.T) {
	l := NewLog()
	h, rec := newRecordingHelper("a")
	require.NoError(t, h.Attach(l))

	require.NoError(t, l.Push("a", 1))
	h.UnregisterProcessor("a")
	assert.False(t, h.Registered("a"))
	require.NoError(t, l.Push("a", 2))

	assert.Equal(t, []string{"a:1"}, rec.snapshot())
}

func TestDispatchErrors_FlattensNestedJoins(t *testing.T) {
	first := &DispatchError{Command: Command{Name: "a", Seq: 1}, Err: errors.New("boom")}
	second := &DispatchError{Command: Command{Name: "b", Seq: 2}, Err: errors.New("bang")}
	third := &DispatchError{Command: Command{Name: "c", Seq: 3}, Err: errors.New("bust")}

	err := errors.Join(
		first,
		errors.Join(second, errors.New("not a dispatch failure")),
		fmt.Errorf("drain: %w", errors.Join(third)),
	)

	got := DispatchErrors(err)
	require.Len(t, got, 3)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
	assert.Equal(t, "c", got[2].Command.Name)
	assert.EqualError(t, got[2].Err, "bust")

	assert.Equal(t, []Command{first.Command, second.Command, third.Command}, FailedCommands(err))
	assert.Nil(t, DispatchErrors(nil))
}

// TestOrderIndependence checks that any split of a command sequence into
// "pushed before attach" and "pushed after attach" yields the same dispatch
// sequence as pushing everything after attach.
func TestOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "unknown"}

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(20)
		seq := make([]Command, n)
		for i := range seq {
			seq[i] = Command{Name: names[rng.Intn(len(names))], Args: []any{i}}
		}

		run := func(split int) []string {
			l := NewLog()
			h, rec := newRecordingHelper("a", "b")
			for _, c := range seq[:split] {
				require.NoError(t, l.PushCommand(c))
			}
			require.NoError(t, h.Attach(l))
			for _, c := range seq[split:] {
				require.NoError(t, l.PushCommand(c))
			}
			return rec.snapshot()
		}

		want := run(0)
		for split := 1; split <= n; split++ {
			assert.Equal(t, want, run(split), "trial %d split %d", trial, split)
		}
	}
}

func TestLog_ConcurrentProducers(t *testing.T) {
	l := NewLog()
	h := NewHelper()

	const producers = 8
	const perProducer = 200

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	var mu sync.Mutex
	seen := make(map[int][]int, producers)

	h.RegisterProcessor("tick", func(_ *Model, args []any) error {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer inFlight.Add(-1)

		p, i := args[0].(int), args[1].(int)
		mu.Lock()
		seen[p] = append(seen[p], i)
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProducer; i++ {
				_ = l.Push("tick", p, i)
			}
		}(p)
	}

	// Attach while producers are running.
	close(start)
	require.NoError(t, h.Attach(l))
	wg.Wait()

	assert.False(t, overlapped.Load(), "handlers must never run concurrently")
	assert.Zero(t, l.Pending())
	assert.Equal(t, producers*perProducer, l.Len())

	for p := 0; p < producers; p++ {
		require.Len(t, seen[p], perProducer, "producer %d", p)
		for i, v := range seen[p] {
			assert.Equal(t, i, v, "producer %d order", p)
		}
	}
}
