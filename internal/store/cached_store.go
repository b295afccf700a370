package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/taskhub/internal/model"
)

// CachedStore serves tenant lookups from a Cache and passes everything else
// through. Cache failures fall back to the database.
type CachedStore struct {
	Store
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedStore wraps inner
func NewCachedStore(inner Store, cache Cache, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{Store: inner, cache: cache, ttl: ttl, log: log}
}

func tenantIDKey(id string) string         { return "tenant:id:" + id }
func tenantSubdomainKey(sub string) string { return "tenant:sub:" + sub }

func (s *CachedStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	return s.cached(ctx, tenantIDKey(id), func() (*model.Tenant, error) {
		return s.Store.GetTenant(ctx, id)
	})
}

func (s *CachedStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	return s.cached(ctx, tenantSubdomainKey(subdomain), func() (*model.Tenant, error) {
		return s.Store.GetTenantBySubdomain(ctx, subdomain)
	})
}

func (s *CachedStore) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	if err := s.Store.UpdateTenant(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, t)
	return nil
}

// Transaction runs fn on an uncached store; tenant writes inside it are
// invalidated once it commits.
func (s *CachedStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	var touched []*model.Tenant
	err := s.Store.Transaction(ctx, func(tx Store) error {
		return fn(&txTracker{Store: tx, touched: &touched})
	})
	if err == nil {
		for _, t := range touched {
			s.invalidate(ctx, t)
		}
	}
	return err
}

func (s *CachedStore) invalidate(ctx context.Context, t *model.Tenant) {
	keys := []string{tenantIDKey(t.ID)}
	if t.Subdomain != "" {
		keys = append(keys, tenantSubdomainKey(t.Subdomain))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Failed to invalidate tenant cache", zap.String("tenant_id", t.ID), zap.Error(err))
	}
}

func (s *CachedStore) cached(ctx context.Context, key string, load func() (*model.Tenant, error)) (*model.Tenant, error) {
	if data, err := s.cache.Get(ctx, key); err == nil {
		var t model.Tenant
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
		s.log.Warn("Dropping undecodable tenant cache entry", zap.String("key", key))
	} else if !errors.Is(err, ErrNotFound) {
		s.log.Warn("Tenant cache read failed", zap.String("key", key), zap.Error(err))
	}

	t, err := load()
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(t); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.log.Warn("Tenant cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return t, nil
}

// txTracker records the tenants updated inside a transaction
type txTracker struct {
	Store
	touched *[]*model.Tenant
}

func (t *txTracker) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	if err := t.Store.UpdateTenant(ctx, tenant); err != nil {
		return err
	}
	*t.touched = append(*t.touched, tenant)
	return nil
}
