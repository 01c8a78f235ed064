package harness

import (
	"maps"
	"sync"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// MockName is the catalog name of the recording processor and storage.
const MockName = "mock"

// recording collects the calls of one run in order.
type recording struct {
	mu    sync.Mutex
	ttl   persist.TTL
	calls []Call
}

func (r *recording) add(op string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
}

func (r *recording) trace() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// mockProcessor records calls and answers PersistTime with a fixed TTL.
type mockProcessor struct {
	rec *recording
}

func (p *mockProcessor) PersistTime(key string, value any) persist.TTL {
	p.rec.add(OpPersistTime, key, value)
	return p.rec.ttl
}

func (p *mockProcessor) ProcessEvent(_ measure.Storage, _ *datalayer.Model, name string, options measure.Options) error {
	p.rec.add(OpProcessEvent, name, maps.Clone(map[string]any(options)))
	return nil
}

// mockStorage records calls; every Load misses.
type mockStorage struct {
	rec *recording
}

func (s *mockStorage) Save(key string, value any, ttl ...persist.TTL) error {
	args := []any{key, value}
	for _, t := range ttl {
		args = append(args, ttlValue(t))
	}
	s.rec.add(OpSave, args...)
	return nil
}

func (s *mockStorage) Load(key string) (any, error) {
	s.rec.add(OpLoad, key)
	return nil, storage.NotFound(key)
}

// ttlValue renders a TTL in trace form: "inf" or a number of seconds.
func ttlValue(t persist.TTL) any {
	if t.IsForever() {
		return "inf"
	}
	return float64(t)
}
