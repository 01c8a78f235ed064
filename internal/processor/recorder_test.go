package processor

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
	"github.com/roach88/measure/internal/storage/memory"
	"github.com/roach88/measure/internal/testutil"
)

func TestPersistTime_TableAndDefault(t *testing.T) {
	r := New(
		WithPersistTime("session", persist.TTL(1800)),
		WithPersistTime("user", persist.Forever),
	)

	assert.Equal(t, persist.TTL(1800), r.PersistTime("session", nil))
	assert.True(t, r.PersistTime("user", nil).IsForever())
	assert.Equal(t, persist.Skip, r.PersistTime("other", nil))

	r = New(WithDefaultPersistTime(persist.AdapterDefault))
	assert.Equal(t, persist.AdapterDefault, r.PersistTime("other", nil))
}

func TestFromOptions(t *testing.T) {
	r, err := FromOptions(measure.Options{
		PersistTimeOption:        map[string]any{"cart": 60, "user": "inf"},
		DefaultPersistTimeOption: -1,
	})
	require.NoError(t, err)

	assert.Equal(t, persist.TTL(60), r.PersistTime("cart", nil))
	assert.True(t, r.PersistTime("user", nil).IsForever())
	assert.Equal(t, persist.AdapterDefault, r.PersistTime("x", nil))
}

func TestFromOptions_Rejects(t *testing.T) {
	_, err := FromOptions(measure.Options{PersistTimeOption: "nope"})
	assert.Error(t, err)

	_, err = FromOptions(measure.Options{PersistTimeOption: map[string]any{"k": "soon"}})
	assert.Error(t, err)

	_, err = FromOptions(measure.Options{DefaultPersistTimeOption: true})
	assert.Error(t, err)
}

func TestProcessEvent_SetPersistsThroughPolicy(t *testing.T) {
	r := New(WithPersistTime("cart", persist.TTL(60)))
	st := &testutil.MockStorage{}
	st.On("Save", "cart", []any{"p1"}, persist.TTL(60)).Return(nil)
	model := datalayer.NewModel()

	err := r.ProcessEvent(st, model, SetEvent, measure.Options{"key": "cart", "value": []any{"p1"}})
	require.NoError(t, err)

	st.AssertExpectations(t)
	got, ok := model.Get("cart")
	require.True(t, ok)
	assert.Equal(t, []any{"p1"}, got)
	assert.Empty(t, r.Events(), "set events are not recorded")
}

func TestProcessEvent_SetExplicitTTL(t *testing.T) {
	r := New()
	st := &testutil.MockStorage{}
	st.On("Save", "k", "v", persist.TTL(5)).Return(nil)

	require.NoError(t, r.ProcessEvent(st, datalayer.NewModel(), SetEvent,
		measure.Options{"key": "k", "value": "v", "ttl": 5}))
	st.AssertExpectations(t)

	// default Skip: no storage call at all
	require.NoError(t, r.ProcessEvent(st, datalayer.NewModel(), SetEvent,
		measure.Options{"key": "other", "value": "v"}))
	st.AssertNumberOfCalls(t, "Save", 1)
}

func TestProcessEvent_SetErrors(t *testing.T) {
	r := New(WithDefaultPersistTime(persist.AdapterDefault))
	boom := errors.New("disk full")
	st := &testutil.MockStorage{}
	st.On("Save", mock.Anything, mock.Anything).Return(boom)
	model := datalayer.NewModel()

	assert.Error(t, r.ProcessEvent(st, model, SetEvent, measure.Options{"value": 1}))
	assert.Error(t, r.ProcessEvent(st, model, SetEvent, measure.Options{"key": 1}))
	assert.Error(t, r.ProcessEvent(st, model, SetEvent, measure.Options{"key": "k", "ttl": "later"}))
	assert.ErrorIs(t, r.ProcessEvent(st, model, SetEvent, measure.Options{"key": "k", "value": 1}), boom)
}

func TestProcessEvent_GetLoadsIntoModel(t *testing.T) {
	r := New()
	st := memory.New()
	require.NoError(t, st.Save("user", map[string]any{"id": "u1"}))
	model := datalayer.NewModel()

	require.NoError(t, r.ProcessEvent(st, model, GetEvent, measure.Options{"key": "user"}))
	got, ok := model.Get("user")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": "u1"}, got)

	require.NoError(t, r.ProcessEvent(st, model, GetEvent, measure.Options{"key": "absent"}),
		"missing keys are not an error")
	_, ok = model.Get("absent")
	assert.False(t, ok)
}

func TestProcessEvent_GetStorageError(t *testing.T) {
	r := New()
	boom := errors.New("connection reset")
	st := &testutil.MockStorage{}
	st.On("Load", "k").Return(nil, boom)

	err := r.ProcessEvent(st, datalayer.NewModel(), GetEvent, measure.Options{"key": "k"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessEvent_RecordsOtherEvents(t *testing.T) {
	r := New(WithIDGenerator(testutil.NewSequentialIDGenerator("ev")))
	st := &testutil.MockStorage{}
	params := measure.Options{"value": 12.5, "currency": "USD"}

	require.NoError(t, r.ProcessEvent(st, datalayer.NewModel(), "page_view", measure.Options{}))
	require.NoError(t, r.ProcessEvent(st, datalayer.NewModel(), "purchase", params))
	params["value"] = 0.0

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, Event{ID: "ev-1", Seq: 1, Name: "page_view", Params: map[string]any{}}, events[0])
	assert.Equal(t, Event{ID: "ev-2", Seq: 2, Name: "purchase",
		Params: map[string]any{"value": 12.5, "currency": "USD"}}, events[1],
		"params are copied at record time")
	st.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFactory_ThroughRuntime(t *testing.T) {
	st := memory.New()
	log := datalayer.NewLog()
	rt, err := measure.Setup(log)
	require.NoError(t, err)

	require.NoError(t, log.Push(measure.ConfigCommand,
		measure.ProcessorFactory(Factory), measure.Options{PersistTimeOption: map[string]any{"cart": "inf"}},
		func(measure.Options) (measure.Storage, error) { return st, nil }, nil,
	))
	require.NoError(t, log.Push(measure.SetCommand, "cart", []any{"p1"}))
	require.NoError(t, log.Push(measure.SetCommand, "ignored", 1))
	require.NoError(t, log.Push(measure.EventCommand, "view_cart", map[string]any{"value": 3}))

	got, err := st.Load("cart")
	require.NoError(t, err)
	assert.Equal(t, []any{"p1"}, got)

	_, err = st.Load("ignored")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	pair, ok := rt.Active()
	require.True(t, ok)
	rec := pair.Processor.(*Recorder)
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "view_cart", rec.Events()[0].Name)
}
