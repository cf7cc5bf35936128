// Package router 提供 HTTP 路由配置
package router

import (
	"z-consensus-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	consensusHandler *handler.ConsensusHandler,
	modelsHandler *handler.ModelsHandler,
) {
	// 共识流程
	v1.POST("/consensus", consensusHandler.Run)

	// 模型发现
	v1.POST("/models", modelsHandler.List)
}
