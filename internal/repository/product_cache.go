package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"order-service/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductCache: минимальный контракт key/value кэша (реализован cache.RedisClient).
type ProductCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type CacheOptions struct {
	TTL         time.Duration
	NotFoundTTL time.Duration
	Log         *zap.Logger
}

const notFoundMarker = "notfound"

type cachedProductRepo struct {
	next  ProductRepo
	cache ProductCache
	opts  CacheOptions
}

// NewCachedProductRepo: cache-aside поверх ProductRepo. Ошибки кэша не ломают чтение.
func NewCachedProductRepo(next ProductRepo, c ProductCache, opts CacheOptions) ProductRepo {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.NotFoundTTL <= 0 {
		opts.NotFoundTTL = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &cachedProductRepo{next: next, cache: c, opts: opts}
}

func productKey(id uuid.UUID) string { return fmt.Sprintf("product:%s", id) }

func (r *cachedProductRepo) Create(ctx context.Context, p *models.Product) error {
	if err := r.next.Create(ctx, p); err != nil {
		return err
	}
	if err := r.cache.Del(ctx, productKey(p.ID)); err != nil {
		r.opts.Log.Warn("product cache invalidate failed", zap.String("product_id", p.ID.String()), zap.Error(err))
	}
	return nil
}

func (r *cachedProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	key := productKey(id)
	if raw, err := r.cache.Get(ctx, key); err == nil {
		if raw == notFoundMarker {
			return nil, nil
		}
		var p models.Product
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
	}

	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		_ = r.cache.Set(ctx, key, notFoundMarker, r.opts.NotFoundTTL)
		return nil, nil
	}
	if data, err := json.Marshal(p); err == nil {
		if err := r.cache.Set(ctx, key, data, r.opts.TTL); err != nil {
			r.opts.Log.Warn("product cache set failed", zap.String("product_id", id.String()), zap.Error(err))
		}
	}
	return p, nil
}

func (r *cachedProductRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	return r.next.ListBySeller(ctx, sellerID)
}
