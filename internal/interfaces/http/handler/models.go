package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"z-consensus-api/internal/config"
	"z-consensus-api/internal/infrastructure/persistence/redis"
	"z-consensus-api/internal/infrastructure/provider"
	"z-consensus-api/internal/interfaces/http/dto"
	"z-consensus-api/pkg/errors"
)

// ModelsHandler 模型列表处理器
type ModelsHandler struct {
	client *http.Client
	cache  *redis.ModelListCache
}

// NewModelsHandler 创建模型列表处理器，cache 为 nil 时每次直连提供商
func NewModelsHandler(cfg *config.Config, cache *redis.ModelListCache) *ModelsHandler {
	client := &http.Client{}
	if cfg != nil && cfg.Discovery.Timeout > 0 {
		client.Timeout = cfg.Discovery.Timeout
	}
	return &ModelsHandler{
		client: client,
		cache:  cache,
	}
}

// List 查询提供商可用模型
// @Summary 查询提供商可用模型
// @Description 向指定提供商查询可用模型列表
// @Tags Models
// @Accept json
// @Produce json
// @Param body body dto.ModelsRequest true "模型列表查询请求"
// @Success 200 {object} dto.Response[dto.ModelsResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/models [post]
func (h *ModelsHandler) List(c *gin.Context) {
	var req dto.ModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	listReq, err := req.ToListModelsRequest()
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	load := func() ([]string, error) {
		return provider.ListModels(ctx, h.client, listReq)
	}

	var models []string
	if h.cache != nil {
		key := redis.ModelListKey(listReq.Endpoint, string(listReq.Type), listReq.FreeOnly, listReq.APIKey)
		models, err = h.cache.GetOrLoad(ctx, key, load)
	} else {
		models, err = load()
	}
	if err != nil {
		respondError(c, modelListError(err))
		return
	}
	dto.Success(c, dto.ModelsResponse{Models: models})
}

// modelListError 将提供商错误映射为应用错误
func modelListError(err error) *errors.AppError {
	switch provider.KindOf(err) {
	case provider.KindAuth:
		return errors.Wrap(err, errors.CodeProviderAuthError, "provider rejected credentials").WithDetail(err.Error())
	case provider.KindRateLimited:
		return errors.Wrap(err, errors.CodeProviderRateLimited, "provider rate limited").WithDetail(err.Error())
	case provider.KindTimeout:
		return errors.Wrap(err, errors.CodeProviderTimeout, "provider query timed out").WithDetail(err.Error())
	default:
		return errors.Wrap(err, errors.CodeModelListFailed, "failed to list models").WithDetail(err.Error())
	}
}
