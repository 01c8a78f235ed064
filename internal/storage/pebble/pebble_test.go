package pebble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
	"github.com/roach88/measure/internal/testutil"
)

func openTestStore(t *testing.T, opts ...storage.Option) (*Store, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock(time.Time{})
	opts = append([]storage.Option{storage.WithClock(clock.Now)}, opts...)

	s, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestStore_SaveLoad(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Save("user", map[string]any{"id": "u1", "score": 3}))
	got, err := s.Load("user")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "u1", "score": int64(3)}, got)

	_, err = s.Load("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ExpiryScanPurge(t *testing.T) {
	s, clock := openTestStore(t, storage.WithDefaultTTL(persist.TTL(60)))

	require.NoError(t, s.Save("a", 1, persist.TTL(1)))
	require.NoError(t, s.Save("b", 2))
	require.NoError(t, s.Save("c", 3, persist.Forever))

	clock.Advance(2 * time.Second)

	var keys []string
	require.NoError(t, s.Scan(func(key string, _ any) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"b", "c"}, keys)

	n, err := s.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	clock.Advance(time.Minute)
	_, err = s.Load("b")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.Load("c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Save("k", "v"))
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestStore_LongTTLSurvives(t *testing.T) {
	clock := testutil.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := Open(t.TempDir(), storage.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// expires in 2277, past the unix-nanosecond range
	require.NoError(t, s.Save("long", "v", persist.TTL(8e9)))
	require.NoError(t, s.Save("huge", "w", persist.TTL(1e10)))

	clock.Advance(200 * 365 * 24 * time.Hour)

	got, err := s.Load("long")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	got, err = s.Load("huge")
	require.NoError(t, err)
	assert.Equal(t, "w", got)
}

func TestRecord_RoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 5000)
	exp, data, err := decodeRecord(encodeRecord(at, []byte(`"x"`)))
	require.NoError(t, err)
	assert.True(t, at.Equal(exp))
	assert.Equal(t, `"x"`, string(data))

	exp, _, err = decodeRecord(encodeRecord(time.Time{}, nil))
	require.NoError(t, err)
	assert.True(t, exp.IsZero())

	for _, at := range []time.Time{
		time.Date(2300, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(1, 1, 1, 0, 1, 0, 0, time.UTC),
	} {
		exp, _, err = decodeRecord(encodeRecord(at, nil))
		require.NoError(t, err)
		assert.True(t, at.Equal(exp), "want %v, got %v", at, exp)
	}

	_, _, err = decodeRecord([]byte{1, 2})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	st, err := Factory(measure.Options{DirOption: t.TempDir()})
	require.NoError(t, err)
	defer st.(*Store).Close()

	require.NoError(t, st.Save("k", true))
	got, err := st.Load("k")
	require.NoError(t, err)
	assert.Equal(t, true, got)
}
