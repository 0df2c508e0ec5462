package cache

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"community-gov.backend/internal/domain/entities"
	"community-gov.backend/pkg/logger"
)

const communityTTL = time.Hour

// CommunityCache keeps hot community projections in redis, keyed by
// on-chain id. Failures are logged and swallowed: the store remains the
// source of truth and a cold cache is never an error.
type CommunityCache struct {
	client *goredis.Client
}

// NewCommunityCache creates a community cache on the shared redis client
func NewCommunityCache(client *goredis.Client) *CommunityCache {
	return &CommunityCache{client: client}
}

// Refresh stores the latest community projection
func (c *CommunityCache) Refresh(ctx context.Context, community *entities.Community) {
	if c == nil || c.client == nil || community == nil {
		return
	}

	payload, err := json.Marshal(community)
	if err != nil {
		logger.Warn(ctx, "failed to marshal community for cache", zap.Error(err))
		return
	}

	key := "community:" + community.OnChainID
	if err := c.client.Set(ctx, key, payload, communityTTL).Err(); err != nil {
		logger.Warn(ctx, "failed to refresh community cache",
			zap.String("on_chain_id", community.OnChainID), zap.Error(err))
	}
}

// Get returns the cached projection, or nil on miss or error
func (c *CommunityCache) Get(ctx context.Context, onChainID string) *entities.Community {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, "community:"+onChainID).Result()
	if err != nil {
		if err != goredis.Nil {
			logger.Warn(ctx, "failed to read community cache",
				zap.String("on_chain_id", onChainID), zap.Error(err))
		}
		return nil
	}

	var community entities.Community
	if err := json.Unmarshal([]byte(raw), &community); err != nil {
		return nil
	}
	return &community
}

// Invalidate drops the cached projection
func (c *CommunityCache) Invalidate(ctx context.Context, onChainID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, "community:"+onChainID).Err(); err != nil {
		logger.Warn(ctx, "failed to invalidate community cache",
			zap.String("on_chain_id", onChainID), zap.Error(err))
	}
}
