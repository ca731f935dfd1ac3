package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/logger"
	"github.com/okian/diarycal/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCachePrefix = "diarycal:profile:"
	defaultCacheTTL    = time.Minute
)

// CachedStore is a read-through Redis cache in front of another Store.
// Writes go to the backing store first and then drop the cached entry, so a
// reader sees at worst the previous whole profile until the TTL expires.
// Redis failures on reads fall back to the backing store.
type CachedStore struct {
	next   Store
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCachedStore wraps next with a Redis cache.
func NewCachedStore(next Store, client redis.Cmdable, opts ...CacheOption) *CachedStore {
	s := &CachedStore{
		next:   next,
		client: client,
		ttl:    defaultCacheTTL,
		prefix: defaultCachePrefix,
		logger: logger.Get().Named("profile-cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedStore) key(scope model.Scope) string { return s.prefix + scope.Key() }

func (s *CachedStore) Get(ctx context.Context, scope model.Scope) (*model.Profile, error) {
	data, err := s.client.Get(ctx, s.key(scope)).Bytes()
	switch {
	case err == nil:
		var p model.Profile
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		s.logger.Warn(ctx, "dropping undecodable cache entry", logger.String("scope", scope.Key()))
	case !errors.Is(err, redis.Nil):
		metrics.RecordStoreError("redis")
		s.logger.Warn(ctx, "profile cache read failed", logger.String("scope", scope.Key()), logger.Error(err))
		return s.next.Get(ctx, scope)
	}

	p, err := s.next.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := s.client.Set(ctx, s.key(scope), data, s.ttl).Err(); err != nil {
			metrics.RecordStoreError("redis")
			s.logger.Warn(ctx, "profile cache fill failed", logger.String("scope", scope.Key()), logger.Error(err))
		}
	}
	return p, nil
}

func (s *CachedStore) Set(ctx context.Context, p model.Profile) error {
	if err := s.next.Set(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.Scope)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, scope model.Scope) error {
	if err := s.next.Delete(ctx, scope); err != nil {
		return err
	}
	s.invalidate(ctx, scope)
	return nil
}

func (s *CachedStore) List(ctx context.Context) ([]model.Profile, error) {
	return s.next.List(ctx)
}

func (s *CachedStore) invalidate(ctx context.Context, scope model.Scope) {
	if err := s.client.Del(ctx, s.key(scope)).Err(); err != nil {
		metrics.RecordStoreError("redis")
		s.logger.Warn(ctx, "profile cache invalidation failed", logger.String("scope", scope.Key()), logger.Error(err))
	}
}
