package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suteetoe/taskhub/internal/model"
)

func TestInMemoryCache(t *testing.T) {
	c := NewInMemoryCache(2)
	defer c.Close()
	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))
	assert.Equal(t, 2, c.Size())

	require.NoError(t, c.Delete(ctx, "b", "c"))
	assert.Equal(t, 0, c.Size())
}

type countingStore struct {
	Store
	gets int
}

func (s *countingStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	s.gets++
	return s.Store.GetTenant(ctx, id)
}

func (s *countingStore) GetTenantBySubdomain(ctx context.Context, sub string) (*model.Tenant, error) {
	s.gets++
	return s.Store.GetTenantBySubdomain(ctx, sub)
}

func TestCachedStoreServesAndInvalidates(t *testing.T) {
	inner := &countingStore{Store: newTestStore(t)}
	cache := NewInMemoryCache(100)
	defer cache.Close()
	s := NewCachedStore(inner, cache, time.Minute, nil)
	ctx := context.Background()
	tenant := seedTenant(t, s, "acme")

	for i := 0; i < 3; i++ {
		got, err := s.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, "acme", got.Subdomain)
	}
	assert.Equal(t, 1, inner.gets)

	_, err := s.GetTenantBySubdomain(ctx, "acme")
	require.NoError(t, err)
	_, err = s.GetTenantBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)

	tenant.Status = model.TenantStatusSuspended
	require.NoError(t, s.UpdateTenant(ctx, tenant))

	got, err := s.GetTenantBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, model.TenantStatusSuspended, got.Status)
	assert.Equal(t, 3, inner.gets)
}

func TestCachedStoreInvalidatesAfterCommit(t *testing.T) {
	cache := NewInMemoryCache(100)
	defer cache.Close()
	s := NewCachedStore(newTestStore(t), cache, time.Minute, nil)
	ctx := context.Background()
	tenant := seedTenant(t, s, "acme")

	_, err := s.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)

	require.NoError(t, s.Transaction(ctx, func(tx Store) error {
		tenant.Name = "renamed"
		return tx.UpdateTenant(ctx, tenant)
	}))

	got, err := s.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	cache := NewInMemoryCache(100)
	defer cache.Close()
	s := NewCachedStore(newTestStore(t), cache, time.Minute, nil)

	_, err := s.GetTenantBySubdomain(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, cache.Size())
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, "taskhub-test:")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
