// Package cache decorates a source with an LRU cache whose entries expire.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/model"
)

// Source caches successful results of the wrapped source for ttl.
// Errors are never cached.
type Source struct {
	next  dora.Source
	cache *expirable.LRU[string, any]
}

// New wraps next with a cache holding up to size entries, each living ttl.
func New(next dora.Source, size int, ttl time.Duration) (*Source, error) {
	if size <= 0 {
		return nil, fmt.Errorf("create cache: size must be positive, got %d", size)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("create cache: ttl must be positive, got %s", ttl)
	}
	return &Source{next: next, cache: expirable.NewLRU[string, any](size, nil, ttl)}, nil
}

// Services returns the cached service list.
func (s *Source) Services(ctx context.Context) ([]string, error) {
	v, err := s.get("services", func() (any, error) {
		return s.next.Services(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// Snapshot returns the cached snapshot of service over days.
func (s *Source) Snapshot(ctx context.Context, service string, days int) (model.Snapshot, error) {
	v, err := s.get(fmt.Sprintf("snapshot:%s:%d", service, days), func() (any, error) {
		return s.next.Snapshot(ctx, service, days)
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return v.(model.Snapshot), nil
}

// Deployments returns the cached deployments of service.
func (s *Source) Deployments(ctx context.Context, service string) ([]model.Deployment, error) {
	v, err := s.get("deployments:"+service, func() (any, error) {
		return s.next.Deployments(ctx, service)
	})
	if err != nil {
		return nil, err
	}
	return append([]model.Deployment(nil), v.([]model.Deployment)...), nil
}

// Ping is not cached.
func (s *Source) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Len returns the number of cached entries. Expired entries count until the
// cache reaps them.
func (s *Source) Len() int {
	return s.cache.Len()
}

func (s *Source) get(key string, load func() (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, v)
	return v, nil
}
