package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/config"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisService 缓存提示推理得到的掩码
type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

var _ backend.MaskCache = (*RedisService)(nil)

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetMask 从缓存获取掩码
func (s *RedisService) GetMask(ctx context.Context, key string) (*model.Annotation, error) {
	data, err := s.client.Get(ctx, "mask:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}

	var ann model.Annotation
	if err := json.Unmarshal(data, &ann); err != nil {
		utils.Logger.Error("failed to unmarshal cached mask",
			zap.String("cache_key", key), zap.Error(err))
		return nil, err
	}

	return &ann, nil
}

// SetMask 写入缓存
func (s *RedisService) SetMask(ctx context.Context, key string, ann model.Annotation) error {
	data, err := json.Marshal(ann)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, "mask:"+key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
