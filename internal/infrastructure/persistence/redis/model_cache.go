package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"z-consensus-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// defaultModelListTTL 模型列表缓存的默认有效期
const defaultModelListTTL = 5 * time.Minute

// ModelListCache 模型列表缓存
// 缓存不可用时直接回源，不影响查询结果
type ModelListCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewModelListCache 创建模型列表缓存
func NewModelListCache(client *Client, ttl time.Duration) *ModelListCache {
	if ttl <= 0 {
		ttl = defaultModelListTTL
	}
	return &ModelListCache{
		client: client,
		ttl:    ttl,
	}
}

// ModelListKey 构建模型列表缓存键，凭证只进摘要不落存储
func ModelListKey(endpoint, providerType string, freeOnly bool, apiKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\n%s\n%t\n%s", endpoint, providerType, freeOnly, apiKey)))
	return "models:" + hex.EncodeToString(sum[:])[:16]
}

// GetOrLoad 读取缓存，未命中时经 singleflight 合并回源
func (c *ModelListCache) GetOrLoad(ctx context.Context, key string, loader func() ([]string, error)) ([]string, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if models, ok := c.lookup(ctx, span, key); ok {
		return models, nil
	}

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		// 再次检查缓存（可能已被其他请求填充）
		if models, ok := c.lookup(ctx, span, key); ok {
			return models, nil
		}

		models, err := loader()
		if err != nil {
			return nil, err
		}

		bytes, err := json.Marshal(models)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal model list: %w", err)
		}
		if err := c.client.Set(ctx, key, bytes, c.ttl); err != nil {
			// 缓存写入失败不影响返回结果
			logger.Warn(ctx, "model list cache write failed", "key", key, "error", err.Error())
		}
		return models, nil
	})

	span.SetAttributes(attribute.Bool("cache.shared", shared))

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.([]string), nil
}

// lookup 尝试读取并反序列化缓存值，读取失败按未命中处理
func (c *ModelListCache) lookup(ctx context.Context, span trace.Span, key string) ([]string, bool) {
	val, err := c.client.Get(ctx, key)
	if err != nil {
		if !IsNil(err) {
			logger.Warn(ctx, "model list cache read failed", "key", key, "error", err.Error())
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}

	var models []string
	if err := json.Unmarshal([]byte(val), &models); err != nil {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return models, true
}
