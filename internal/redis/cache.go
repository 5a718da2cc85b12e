package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"billpay/internal/domain"
)

// CatalogStore caches provider catalogs in Redis.
type CatalogStore struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultCatalogTTL is used when no TTL is configured. Plan prices change rarely.
const DefaultCatalogTTL = 10 * time.Minute

// Key prefixes
const (
	planCachePrefix    = "catalog:plans:"
	bouquetCachePrefix = "catalog:bouquets:"
)

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(client *redis.Client, ttl time.Duration) *CatalogStore {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogStore{client: client, ttl: ttl}
}

// GetDataPlans retrieves a provider's data plans from cache.
func (s *CatalogStore) GetDataPlans(ctx context.Context, provider string) ([]domain.DataPlan, bool, error) {
	var plans []domain.DataPlan
	ok, err := s.get(ctx, planCachePrefix+provider, &plans)
	if !ok || err != nil {
		return nil, false, err
	}
	return plans, true, nil
}

// SetDataPlans stores a provider's data plans.
func (s *CatalogStore) SetDataPlans(ctx context.Context, provider string, plans []domain.DataPlan) error {
	return s.set(ctx, planCachePrefix+provider, plans)
}

// GetBouquets retrieves a provider's bouquets from cache.
func (s *CatalogStore) GetBouquets(ctx context.Context, provider string) ([]domain.CableBouquet, bool, error) {
	var bouquets []domain.CableBouquet
	ok, err := s.get(ctx, bouquetCachePrefix+provider, &bouquets)
	if !ok || err != nil {
		return nil, false, err
	}
	return bouquets, true, nil
}

// SetBouquets stores a provider's bouquets.
func (s *CatalogStore) SetBouquets(ctx context.Context, provider string, bouquets []domain.CableBouquet) error {
	return s.set(ctx, bouquetCachePrefix+provider, bouquets)
}

// InvalidateProvider drops every cached catalog of the given providers in one round trip.
func (s *CatalogStore) InvalidateProvider(ctx context.Context, providers ...string) error {
	if len(providers) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, p := range providers {
		pipe.Del(ctx, planCachePrefix+p, bouquetCachePrefix+p)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *CatalogStore) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Cache miss
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// A blob we cannot read is treated as a miss and overwritten on the next set.
		return false, nil
	}
	return true, nil
}

func (s *CatalogStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}
