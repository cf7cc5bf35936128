// Package router 提供 HTTP 路由配置
package router

import (
	"z-consensus-api/internal/config"
	"z-consensus-api/internal/interfaces/http/handler"
	"z-consensus-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config

	consensusHandler *handler.ConsensusHandler
	modelsHandler    *handler.ModelsHandler
	healthHandler    *handler.HealthHandler
	limiter          middleware.RateLimiter
}

// New 创建新的路由器
func New(
	cfg *config.Config,
	consensusHandler *handler.ConsensusHandler,
	modelsHandler *handler.ModelsHandler,
	healthHandler *handler.HealthHandler,
	limiter middleware.RateLimiter,
) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:           engine,
		cfg:              cfg,
		consensusHandler: consensusHandler,
		modelsHandler:    modelsHandler,
		healthHandler:    healthHandler,
		limiter:          limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	// 访问日志中间件
	r.engine.Use(middleware.AccessLog(middleware.DefaultLogSkipPaths...))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/ready", r.healthHandler.Ready)
	r.engine.GET("/live", r.healthHandler.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组，业务端点统一限流
	v1 := r.engine.Group("/v1")
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:  r.cfg.Security.RateLimit.Enabled,
		Requests: r.cfg.Security.RateLimit.Requests,
		Window:   r.cfg.Security.RateLimit.Window,
	}, r.limiter))

	RegisterV1Routes(v1, r.consensusHandler, r.modelsHandler)
}
