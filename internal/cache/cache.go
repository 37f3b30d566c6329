// Package cache is a read-through, invalidation-driven cache for listing queries.
//
// Entries never expire on their own. Every namespace and every key carries a
// generation counter; a loaded value is only stored if the counters it was
// computed under are still current, so a computation that races an eviction
// can never be served once the eviction has returned.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Key addresses one cached query result inside a namespace.
type Key struct {
	Namespace string
	ID        string
}

func (k Key) String() string {
	return k.Namespace + ":" + k.ID
}

// Loader computes the value for a key on a miss.
type Loader func(ctx context.Context) ([]byte, error)

type Store interface {
	// GetOrCompute returns the cached bytes for key, or calls loader and caches
	// its result. Loader errors are returned and never cached.
	GetOrCompute(ctx context.Context, key Key, loader Loader) ([]byte, error)

	// Evict drops a single key.
	Evict(ctx context.Context, key Key) error

	// EvictNamespace drops every key in namespace.
	EvictNamespace(ctx context.Context, namespace string) error
}

// Fetch is the typed front of GetOrCompute; values are JSON encoded.
func Fetch[T any](ctx context.Context, s Store, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	data, err := s.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, nil
}
