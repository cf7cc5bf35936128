// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"z-consensus-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DefaultLogSkipPaths 默认不记录访问日志的路径
var DefaultLogSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// AccessLog 访问日志中间件
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	skipMap := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start)

		logger.Info(c.Request.Context(), "api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"request_id", c.GetString("request_id"),
			"trace_id", c.GetString("trace_id"),
			"body_size", c.Writer.Size(),
		)
	}
}
