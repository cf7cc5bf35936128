package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"z-consensus-api/internal/application/consensus"
	"z-consensus-api/internal/domain/entity"
	"z-consensus-api/internal/interfaces/http/dto"
	"z-consensus-api/pkg/errors"
)

// consensusRunner 共识引擎的最小依赖面
type consensusRunner interface {
	Run(ctx context.Context, req *entity.ConsensusRequest) (*entity.ConsensusResult, error)
}

// ConsensusHandler 共识处理器
type ConsensusHandler struct {
	engine consensusRunner
}

// NewConsensusHandler 创建共识处理器
func NewConsensusHandler(engine *consensus.Engine) *ConsensusHandler {
	return &ConsensusHandler{
		engine: engine,
	}
}

// Run 执行共识流程
// @Summary 执行共识流程
// @Description 将提示词分发给三个参与模型，收集互评排名后由主席模型合成最终答案
// @Tags Consensus
// @Accept json
// @Produce json
// @Param body body dto.ConsensusRequest true "共识请求"
// @Success 200 {object} dto.Response[dto.ConsensusResultResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.Response[dto.ConsensusResultResponse]
// @Router /v1/consensus [post]
func (h *ConsensusHandler) Run(c *gin.Context) {
	var req dto.ConsensusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	domainReq, err := req.ToEntity()
	if err != nil {
		respondError(c, errors.New(errors.CodeAttachmentInvalid, err.Error()))
		return
	}
	if err := domainReq.Validate(); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	result, err := h.engine.Run(c.Request.Context(), domainReq)
	if err != nil {
		// 运行失败仍返回已收集的部分结果
		appErr := errors.AsAppError(err)
		dto.ErrorWithData(c, appErr.HTTPStatus, appErr.Message, dto.ToConsensusResultResponse(result))
		return
	}
	dto.Success(c, dto.ToConsensusResultResponse(result))
}
