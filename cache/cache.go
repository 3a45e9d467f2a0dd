// Package cache keeps fetched values for a bounded time.
//
// Each kind of value (prices, names, rates) has its own time to live. Values
// are stored under "kind/key" in a single in-memory store.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Kind is a category of cached values sharing the same time to live.
type Kind struct {
	Name string
	TTL  time.Duration
}

// Default kinds.
var (
	Price = Kind{Name: "price", TTL: 5 * time.Minute}
	Name  = Kind{Name: "name", TTL: 24 * time.Hour}
	Rates = Kind{Name: "rates", TTL: time.Hour}
)

// Store is an in-memory TTL cache safe for concurrent use.
type Store struct {
	c *gocache.Cache
}

// New returns an empty store. Expired items are purged every cleanup interval.
func New(cleanup time.Duration) *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func id(k Kind, key string) string { return k.Name + "/" + key }

// Set stores v under key for k.TTL.
func (s *Store) Set(k Kind, key string, v any) {
	s.c.Set(id(k, key), v, k.TTL)
}

// Get returns the value under key if it has not expired.
func (s *Store) Get(k Kind, key string) (any, bool) {
	return s.c.Get(id(k, key))
}

// Delete removes the value under key.
func (s *Store) Delete(k Kind, key string) {
	s.c.Delete(id(k, key))
}

// Lookup returns the value under key typed as T.
func Lookup[T any](s *Store, k Kind, key string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	v, ok := s.Get(k, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// GetOrFetch returns the cached value under key or calls fetch and caches
// its result. Errors are not cached.
func GetOrFetch[T any](s *Store, k Kind, key string, fetch func() (T, error)) (T, error) {
	if v, ok := Lookup[T](s, k, key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	if s != nil {
		s.Set(k, key, v)
	}
	return v, nil
}
