package backend

import (
	"context"

	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/utils"
	"go.uber.org/zap"
)

// MaskCache 推理结果缓存，未命中时返回 nil, nil
type MaskCache interface {
	GetMask(ctx context.Context, key string) (*model.Annotation, error)
	SetMask(ctx context.Context, key string, ann model.Annotation) error
}

// Cached 为 CreateMask 加上缓存，其余调用直接转发
type Cached struct {
	Client
	cache  MaskCache
	logger *zap.Logger
}

func NewCached(client Client, cache MaskCache, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{Client: client, cache: cache, logger: logger}
}

// CacheKey 图像与提示序列的缓存键
func CacheKey(imageKey string, prompts []model.PromptPoint) (string, error) {
	return utils.JSONMD5(struct {
		Image   string              `json:"image"`
		Prompts []model.PromptPoint `json:"prompts"`
	}{imageKey, prompts})
}

func (c *Cached) CreateMask(ctx context.Context, imageKey string, prompts []model.PromptPoint) (model.Annotation, error) {
	key, err := CacheKey(imageKey, prompts)
	if err != nil {
		c.logger.Warn("failed to build cache key", zap.Error(err))
	} else {
		cached, err := c.cache.GetMask(ctx, key)
		if err != nil {
			c.logger.Warn("failed to get cache", zap.Error(err))
		} else if cached != nil {
			c.logger.Debug("cache hit", zap.String("cache_key", key))
			return *cached, nil
		}
	}

	ann, err := c.Client.CreateMask(ctx, imageKey, prompts)
	if err != nil {
		return ann, err
	}
	if key != "" {
		if err := c.cache.SetMask(ctx, key, ann); err != nil {
			c.logger.Warn("failed to set cache", zap.Error(err))
		}
	}
	return ann, nil
}
