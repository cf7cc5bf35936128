//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-consensus-api/internal/application/consensus"
	"z-consensus-api/internal/config"
	"z-consensus-api/internal/infrastructure/persistence/redis"
	"z-consensus-api/internal/interfaces/http/handler"
	"z-consensus-api/internal/interfaces/http/middleware"
	"z-consensus-api/internal/interfaces/http/router"
	"z-consensus-api/pkg/logger"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RedisSet,
		EngineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// RedisSet Redis 提供者集合（可选，不可达时禁用限流与模型列表缓存）
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideRateLimiter,
	ProvideModelListCache,
)

// EngineSet 共识引擎提供者集合
var EngineSet = wire.NewSet(
	ProvideConsensusEngine,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewConsensusHandler,
	handler.NewModelsHandler,
	handler.NewHealthHandler,
	router.New,
)

// ProvideRedisClientOptional 提供 Redis 客户端
// 限流与缓存都未启用时不建立连接；连接失败只降级相关能力，不阻塞启动
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Enabled && !cfg.Security.RateLimit.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting and model list cache disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter 提供限流器，无 Redis 时返回 nil 接口
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideModelListCache 提供模型列表缓存，未启用或无 Redis 时返回 nil
func ProvideModelListCache(cfg *config.Config, client *redis.Client) *redis.ModelListCache {
	if !cfg.Cache.Enabled || client == nil {
		return nil
	}
	return redis.NewModelListCache(client, cfg.Cache.ModelListTTL)
}

// ProvideConsensusEngine 提供共识引擎
func ProvideConsensusEngine(cfg *config.Config) *consensus.Engine {
	return consensus.NewEngine(cfg.Consensus, nil)
}
