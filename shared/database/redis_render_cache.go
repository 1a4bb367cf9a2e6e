package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ganita-server/shared/models"
)

// RenderCache — кэш результатов рендеринга, ключ — fingerprint сцены.
// Запись делается только при подтверждённом успехе; отменённый или
// упавший рендер частичных записей не оставляет.
type RenderCache interface {
	Get(ctx context.Context, fingerprint string) (models.RenderResult, error)
	Set(ctx context.Context, result models.RenderResult) error
}

var _ RenderCache = (*redisRenderCache)(nil)

type redisRenderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRenderCache создает Redis-кэш результатов рендеринга.
func NewRedisRenderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) RenderCache {
	return &redisRenderCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisRenderCache"),
	}
}

func cacheKey(fingerprint string) string {
	return fmt.Sprintf("render_result:%s", fingerprint)
}

// Get возвращает результат по fingerprint. Отсутствие записи — models.ErrNotFound.
func (r *redisRenderCache) Get(ctx context.Context, fingerprint string) (models.RenderResult, error) {
	key := cacheKey(fingerprint)
	r.logger.Debug("Getting render result from Redis", zap.String("key", key))

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			r.logger.Debug("Render result not found in cache", zap.String("fingerprint", fingerprint))
			return models.RenderResult{}, models.ErrNotFound
		}
		r.logger.Error("Failed to get render result from redis", zap.Error(err), zap.String("key", key))
		return models.RenderResult{}, fmt.Errorf("failed to get render result from redis: %w", err)
	}

	var result models.RenderResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Повреждённая запись — серьёзная проблема, но не фатальная:
		// рендер можно повторить
		r.logger.Error("Corrupted render result data in redis",
			zap.Error(err),
			zap.String("fingerprint", fingerprint),
		)
		return models.RenderResult{}, fmt.Errorf("corrupted render result data for %s: %w", fingerprint, err)
	}
	return result, nil
}

// Set записывает результат успешного рендера с TTL из конфигурации.
func (r *redisRenderCache) Set(ctx context.Context, result models.RenderResult) error {
	if result.Status != models.RenderStatusDone {
		return fmt.Errorf("refusing to cache non-successful render result (status=%s)", result.Status)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal render result: %w", err)
	}

	key := cacheKey(result.Fingerprint)
	r.logger.Debug("Caching render result",
		zap.String("key", key),
		zap.Duration("ttl", r.ttl),
	)

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to cache render result", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to cache render result: %w", err)
	}
	return nil
}
