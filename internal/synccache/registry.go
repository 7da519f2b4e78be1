package synccache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Registry hands out one Cache per connected session, fingerprinted by the
// access token. A rotated token therefore starts with a fresh cache, tying
// cache lifecycle to the session rather than the process.
type Registry struct {
	mu         sync.Mutex
	caches     map[string]*Cache
	newFetcher func(token string) Fetcher
}

func NewRegistry(newFetcher func(token string) Fetcher) *Registry {
	return &Registry{
		caches:     make(map[string]*Cache),
		newFetcher: newFetcher,
	}
}

// For returns the cache for the session identified by token, creating it on
// first use.
func (r *Registry) For(token string) *Cache {
	fp := fingerprint(token)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[fp]; ok {
		return c
	}
	c := New(r.newFetcher(token))
	r.caches[fp] = c
	return c
}

// Drop forgets the session's cache, e.g. on disconnect.
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, fingerprint(token))
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
