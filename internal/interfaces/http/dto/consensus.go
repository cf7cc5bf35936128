package dto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"z-consensus-api/internal/domain/entity"
)

// LLMConfigDTO 单个模型的接入配置
type LLMConfigDTO struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Model    string `json:"model" binding:"required"`
	APIKey   string `json:"api_key,omitempty"`
	Type     string `json:"type,omitempty"` // openai / ollama / bedrock，默认 openai
}

// FileDTO 请求附带的文件，图片与二进制内容为 base64 编码
type FileDTO struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type,omitempty"` // MIME 类型
	Content string `json:"content,omitempty"`
}

// ConsensusRequest 共识运行请求
type ConsensusRequest struct {
	Prompt       string         `json:"prompt" binding:"required"`
	Participants []LLMConfigDTO `json:"participants" binding:"required"`
	Chairman     LLMConfigDTO   `json:"chairman"`
	File         *FileDTO       `json:"file,omitempty"`
}

// toParticipantConfig 将模型配置转换为领域对象，type 为空时默认 openai
// 合法性交由领域层校验
func (d LLMConfigDTO) toParticipantConfig() entity.ParticipantConfig {
	pt := entity.ProviderOpenAICompatible
	if strings.TrimSpace(d.Type) != "" {
		pt = entity.ProviderType(strings.ToLower(strings.TrimSpace(d.Type)))
	}
	return entity.ParticipantConfig{
		Endpoint: d.Endpoint,
		Model:    d.Model,
		APIKey:   d.APIKey,
		Type:     pt,
	}
}

// toAttachment 将文件转换为附件，按 MIME 类型划分类别并校验编码
func (d *FileDTO) toAttachment() (*entity.Attachment, error) {
	if d == nil {
		return nil, nil
	}
	kind := entity.KindForMime(d.Type)
	if kind != entity.AttachmentText && d.Content != "" {
		if _, err := base64.StdEncoding.DecodeString(d.Content); err != nil {
			return nil, fmt.Errorf("file %q: content is not valid base64", d.Name)
		}
	}
	return &entity.Attachment{
		Name:     d.Name,
		MimeType: d.Type,
		Kind:     kind,
		Payload:  d.Content,
	}, nil
}

// ToEntity 将请求转换为领域对象
// 返回错误仅来自附件内容编码检查，其余校验交由领域层
func (r *ConsensusRequest) ToEntity() (*entity.ConsensusRequest, error) {
	req := &entity.ConsensusRequest{
		Prompt:       r.Prompt,
		Participants: make([]entity.ParticipantConfig, 0, len(r.Participants)),
		Chairman:     r.Chairman.toParticipantConfig(),
	}
	for _, p := range r.Participants {
		req.Participants = append(req.Participants, p.toParticipantConfig())
	}

	attachment, err := r.File.toAttachment()
	if err != nil {
		return nil, err
	}
	req.Attachment = attachment
	return req, nil
}

// ResponseRecordDTO 单个参与者的响应，失败时 response 为 null
type ResponseRecordDTO struct {
	Participant int     `json:"participant"`
	Response    *string `json:"response"`
	Error       string  `json:"error,omitempty"`
	ErrorDetail string  `json:"error_detail,omitempty"`
}

// RankingRecordDTO 单个参与者给出的排名，缺席时 ranking 为 null
type RankingRecordDTO struct {
	Participant int     `json:"participant"`
	Ranking     *string `json:"ranking"`
	ParsedOrder []int   `json:"parsed_order,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// ConsensusResultResponse 共识运行结果
type ConsensusResultResponse struct {
	Prompt        string              `json:"prompt"`
	Responses     []ResponseRecordDTO `json:"responses"`
	Rankings      []RankingRecordDTO  `json:"rankings"`
	FinalOutput   *string             `json:"final_output"`
	Status        string              `json:"status"`
	FailureReason string              `json:"failure_reason,omitempty"`
}

// ToConsensusResultResponse 将运行结果转换为响应 DTO
func ToConsensusResultResponse(res *entity.ConsensusResult) *ConsensusResultResponse {
	if res == nil {
		return nil
	}

	resp := &ConsensusResultResponse{
		Prompt:        res.Prompt,
		Responses:     make([]ResponseRecordDTO, 0, len(res.Responses)),
		Rankings:      make([]RankingRecordDTO, 0, len(res.Rankings)),
		Status:        string(res.Status),
		FailureReason: res.FailureReason,
	}
	for _, rec := range res.Responses {
		one := ResponseRecordDTO{
			Participant: rec.Participant,
			Error:       rec.ErrorKind,
			ErrorDetail: rec.ErrorDetail,
		}
		if !rec.Failed() {
			text := rec.Text
			one.Response = &text
		}
		resp.Responses = append(resp.Responses, one)
	}
	for _, rec := range res.Rankings {
		one := RankingRecordDTO{
			Participant: rec.Participant,
			ParsedOrder: rec.ParsedOrder,
			Error:       rec.ErrorKind,
		}
		if !rec.Absent() {
			raw := rec.Raw
			one.Ranking = &raw
		}
		resp.Rankings = append(resp.Rankings, one)
	}
	if res.Status == entity.ConsensusDone {
		out := res.FinalOutput
		resp.FinalOutput = &out
	}
	return resp
}
