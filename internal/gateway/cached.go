package gateway

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/cache"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/logger"
)

// CachedGateway caches subscription status lookups. PIX charges are never cached.
type CachedGateway struct {
	Gateway
	cache  cache.Cache
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedGateway(inner Gateway, c cache.Cache, cfg *config.Configuration, logger *logger.Logger) *CachedGateway {
	return &CachedGateway{
		Gateway: inner,
		cache:   c,
		ttl:     cfg.Cache.GatewayStatusTTL,
		logger:  logger,
	}
}

func (g *CachedGateway) GetSubscriptionStatus(ctx context.Context, gatewaySubscriptionID string) (*SubscriptionStatusResult, error) {
	key := cache.GenerateKey(cache.PrefixGatewaySubscriptionStatus, gatewaySubscriptionID)

	span := cache.StartCacheSpan(ctx, "gateway", "get_subscription_status", map[string]any{
		"gateway_subscription_id": gatewaySubscriptionID,
	})
	defer cache.FinishSpan(span)

	if v, ok := g.cache.Get(ctx, key); ok {
		if res, ok := v.(*SubscriptionStatusResult); ok {
			return res, nil
		}
	}

	res, err := g.Gateway.GetSubscriptionStatus(ctx, gatewaySubscriptionID)
	if err != nil {
		return nil, err
	}

	g.cache.Set(ctx, key, res, g.ttl)
	return res, nil
}
