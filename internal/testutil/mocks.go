// Package testutil provides test doubles shared across packages.
package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
)

// MockProcessor is a testify mock implementing measure.Processor.
type MockProcessor struct {
	mock.Mock
}

// PersistTime records the call and returns the configured TTL.
func (m *MockProcessor) PersistTime(key string, value any) persist.TTL {
	ret := m.Called(key, value)
	return ret.Get(0).(persist.TTL)
}

// ProcessEvent records the call and returns the configured error.
func (m *MockProcessor) ProcessEvent(storage measure.Storage, model *datalayer.Model, name string, options measure.Options) error {
	return m.Called(storage, model, name, options).Error(0)
}

// MockStorage is a testify mock implementing measure.Storage.
//
// Save records exactly the arguments it received: a call without a TTL is
// recorded with two arguments, so AssertCalled(t, "Save", key, value) only
// matches calls that omitted the TTL.
type MockStorage struct {
	mock.Mock
}

// Save records the call and returns the configured error.
func (m *MockStorage) Save(key string, value any, ttl ...persist.TTL) error {
	args := []any{key, value}
	for _, t := range ttl {
		args = append(args, t)
	}
	return m.Called(args...).Error(0)
}

// Load records the call and returns the configured value and error.
func (m *MockStorage) Load(key string) (any, error) {
	ret := m.Called(key)
	return ret.Get(0), ret.Error(1)
}

// NewMocks returns a processor whose PersistTime returns ttl and a storage
// accepting any Save, with or without a TTL.
func NewMocks(ttl persist.TTL) (*MockProcessor, *MockStorage) {
	proc := &MockProcessor{}
	proc.On("PersistTime", mock.Anything, mock.Anything).Return(ttl)
	proc.On("ProcessEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	store := &MockStorage{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	store.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Load", mock.Anything).Return(nil, nil)

	return proc, store
}

// ProcessorFactory returns a factory always yielding p.
func ProcessorFactory(p measure.Processor) measure.ProcessorFactory {
	return func(measure.Options) (measure.Processor, error) { return p, nil }
}

// StorageFactory returns a factory always yielding s.
func StorageFactory(s measure.Storage) measure.StorageFactory {
	return func(measure.Options) (measure.Storage, error) { return s, nil }
}
