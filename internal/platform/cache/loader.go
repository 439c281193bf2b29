package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Store with read-through loading. Concurrent misses for the
// same key share one loader call.
type Loader struct {
	store  Store
	ttl    time.Duration
	flight singleflight.Group
}

func NewLoader(store Store, ttl time.Duration) *Loader {
	return &Loader{store: store, ttl: ttl}
}

// GetOrLoad returns the cached bytes for key or calls load and caches its
// result. Store failures degrade to a direct load.
func (l *Loader) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if load == nil {
		return nil, false, fmt.Errorf("loader is required")
	}
	if l == nil || l.store == nil || key == "" {
		value, err := load(ctx)
		return value, false, err
	}

	if value, ok, err := l.store.Get(ctx, key); err == nil && ok {
		return value, true, nil
	}

	value, err, _ := l.flight.Do(key, func() (any, error) {
		if cached, ok, getErr := l.store.Get(ctx, key); getErr == nil && ok {
			return cached, nil
		}

		loaded, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		_ = l.store.Set(ctx, key, loaded, l.ttl)
		return loaded, nil
	})
	if err != nil {
		return nil, false, err
	}

	out, _ := value.([]byte)
	return out, false, nil
}

func (l *Loader) Set(ctx context.Context, key string, value []byte) error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.Set(ctx, key, value, l.ttl)
}

// InvalidatePrefix drops every cached key under prefix. Loads already in
// flight may still store their result.
func (l *Loader) InvalidatePrefix(ctx context.Context, prefix string) error {
	if l == nil || l.store == nil || prefix == "" {
		return nil
	}
	return l.store.DeletePrefix(ctx, prefix)
}
