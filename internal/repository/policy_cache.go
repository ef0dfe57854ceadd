package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
)

const policyCacheKey = "sla:policies:active"

// cachedPolicyRepository is a read-through cache over SLAPolicyRepository.
// Policy matching runs on every ticket create and priority change, while the
// policy set changes rarely, so the active list is cached in redis and
// invalidated on any write. Cache failures degrade to the database.
type cachedPolicyRepository struct {
	inner  SLAPolicyRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPolicyRepository wraps inner with a redis cache for ListActive.
// A nil client or non-positive TTL disables caching.
func NewCachedPolicyRepository(inner SLAPolicyRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) SLAPolicyRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return &cachedPolicyRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *cachedPolicyRepository) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	raw, err := r.client.Get(ctx, policyCacheKey).Bytes()
	if err == nil {
		var policies []domain.SLAPolicy
		if err := json.Unmarshal(raw, &policies); err == nil {
			return policies, nil
		}
		r.invalidate(ctx)
	} else if err != redis.Nil {
		r.logger.Warn("policy cache read failed", zap.Error(err))
	}

	policies, err := r.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(policies); err == nil {
		if err := r.client.Set(ctx, policyCacheKey, encoded, r.ttl).Err(); err != nil {
			r.logger.Warn("policy cache write failed", zap.Error(err))
		}
	}
	return policies, nil
}

func (r *cachedPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := r.inner.Create(ctx, policy); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := r.inner.Update(ctx, policy); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *cachedPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	return r.inner.List(ctx)
}

func (r *cachedPolicyRepository) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

func (r *cachedPolicyRepository) invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, policyCacheKey).Err(); err != nil {
		r.logger.Warn("policy cache invalidation failed", zap.Error(err))
	}
}
