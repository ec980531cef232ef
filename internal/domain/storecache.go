package domain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadline-labs/mailscout-cli/internal/model"
)

// DefaultCacheTTL is how long a resolved domain stays valid in the
// persistent cache.
const DefaultCacheTTL = 30 * 24 * time.Hour

// DomainStore is the persistence surface the cached resolver needs.
type DomainStore interface {
	GetDomain(ctx context.Context, company string) (*model.DomainResult, error)
	SetDomain(ctx context.Context, company string, result model.DomainResult, ttl time.Duration) error
}

// StoreCachedResolver layers a persistent cache over a Resolver so resolved
// domains survive across runs. Store failures degrade to plain resolution.
type StoreCachedResolver struct {
	inner *Resolver
	store DomainStore
	ttl   time.Duration
}

// NewStoreCachedResolver wraps inner with the persistent domain cache.
func NewStoreCachedResolver(inner *Resolver, st DomainStore, ttl time.Duration) *StoreCachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &StoreCachedResolver{inner: inner, store: st, ttl: ttl}
}

func (r *StoreCachedResolver) Resolve(ctx context.Context, company string) (model.DomainResult, error) {
	key := NormalizeCompany(company)
	if key != "" {
		cached, err := r.store.GetDomain(ctx, key)
		if err != nil {
			zap.L().Warn("domain: cache read failed", zap.String("company", key), zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	dr, err := r.inner.Resolve(ctx, company)
	if err != nil {
		return dr, err
	}

	if key != "" {
		if err := r.store.SetDomain(ctx, key, dr, r.ttl); err != nil {
			zap.L().Warn("domain: cache write failed", zap.String("company", key), zap.Error(err))
		}
	}
	return dr, nil
}
