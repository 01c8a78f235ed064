package storage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		def  persist.TTL
		ttl  []persist.TTL
		want time.Time
	}{
		{"omitted uses default", persist.TTL(60), nil, epoch.Add(time.Minute)},
		{"adapter default uses default", persist.TTL(60), []persist.TTL{persist.AdapterDefault}, epoch.Add(time.Minute)},
		{"explicit wins", persist.TTL(60), []persist.TTL{persist.TTL(1.5)}, epoch.Add(1500 * time.Millisecond)},
		{"forever never expires", persist.TTL(60), []persist.TTL{persist.Forever}, time.Time{}},
		{"forever default", persist.Forever, nil, time.Time{}},
		{"adapter default as default", persist.AdapterDefault, nil, time.Time{}},
		{"longest duration", persist.TTL(60), []persist.TTL{persist.TTL(9e9)}, epoch.Add(time.Duration(9e9) * time.Second)},
		{"beyond duration range never expires", persist.TTL(60), []persist.TTL{persist.TTL(1e10)}, time.Time{}},
		{"max float never expires", persist.TTL(60), []persist.TTL{persist.TTL(math.MaxFloat64)}, time.Time{}},
		{"huge default never expires", persist.TTL(1e10), nil, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(epoch, tt.def, tt.ttl...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RejectsUnstorableTTL(t *testing.T) {
	for _, ttl := range []persist.TTL{persist.Skip, -5, persist.TTL(math.NaN())} {
		_, err := Resolve(epoch, persist.Forever, ttl)
		assert.ErrorIs(t, err, ErrInvalidTTL, "ttl %v", ttl)
	}
}

func TestSettings_Expiry(t *testing.T) {
	s := NewSettings(WithDefaultTTL(persist.TTL(10)), WithClock(func() time.Time { return epoch }))

	got, err := s.Expiry()
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(10*time.Second), got)

	_, err = s.Expiry(1, 2)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestNewSettings_Defaults(t *testing.T) {
	s := NewSettings()
	assert.True(t, s.DefaultTTL.IsForever())
	assert.NotNil(t, s.Now)
}

func TestOptionsFrom(t *testing.T) {
	opts, err := OptionsFrom(measure.Options{DefaultTTLOption: 30})
	require.NoError(t, err)
	assert.Equal(t, persist.TTL(30), NewSettings(opts...).DefaultTTL)

	opts, err = OptionsFrom(measure.Options{})
	require.NoError(t, err)
	assert.True(t, NewSettings(opts...).DefaultTTL.IsForever())

	opts, err = OptionsFrom(measure.Options{DefaultTTLOption: 1e10})
	require.NoError(t, err)
	assert.Equal(t, persist.TTL(1e10), NewSettings(opts...).DefaultTTL)

	_, err = OptionsFrom(measure.Options{DefaultTTLOption: 0})
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = OptionsFrom(measure.Options{DefaultTTLOption: "soon"})
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	assert.False(t, Expired(time.Time{}, epoch))
	assert.False(t, Expired(epoch.Add(time.Second), epoch))
	assert.True(t, Expired(epoch, epoch))
	assert.True(t, Expired(epoch.Add(-time.Second), epoch))
}

func TestNotFound(t *testing.T) {
	err := NotFound("k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"k"`)
}
