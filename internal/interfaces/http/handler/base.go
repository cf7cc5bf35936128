package handler

import (
	"github.com/gin-gonic/gin"

	"z-consensus-api/internal/interfaces/http/dto"
	"z-consensus-api/pkg/errors"
	"z-consensus-api/pkg/logger"
)

// respondError 将错误映射为统一错误响应
func respondError(c *gin.Context, err error) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}
	logger.Error(c.Request.Context(), "unhandled error", err)
	dto.InternalError(c, "internal server error")
}
