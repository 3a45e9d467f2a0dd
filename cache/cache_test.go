package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_KindsAreSeparate(t *testing.T) {
	s := New(time.Minute)
	s.Set(Price, "US:AAPL", 150.0)
	s.Set(Name, "US:AAPL", "Apple Inc.")

	p, ok := Lookup[float64](s, Price, "US:AAPL")
	require.True(t, ok)
	assert.Equal(t, 150.0, p)

	n, ok := Lookup[string](s, Name, "US:AAPL")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", n)

	s.Delete(Price, "US:AAPL")
	_, ok = s.Get(Price, "US:AAPL")
	assert.False(t, ok)
	_, ok = s.Get(Name, "US:AAPL")
	assert.True(t, ok, "deleting a price keeps the name")
}

func TestStore_Expiry(t *testing.T) {
	s := New(time.Minute)
	short := Kind{Name: "short", TTL: 10 * time.Millisecond}
	s.Set(short, "k", 1)
	time.Sleep(30 * time.Millisecond)
	_, ok := s.Get(short, "k")
	assert.False(t, ok)
}

func TestGetOrFetch(t *testing.T) {
	s := New(time.Minute)
	calls := 0
	fetch := func() (int, error) { calls++; return 42, nil }

	for range 3 {
		v, err := GetOrFetch(s, Rates, "TWD", fetch)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := GetOrFetch(s, Rates, "USD", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := s.Get(Rates, "USD")
	assert.False(t, ok, "errors are not cached")
}

func TestNilStore(t *testing.T) {
	v, err := GetOrFetch[int](nil, Price, "x", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
