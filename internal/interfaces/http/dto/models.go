package dto

import (
	"z-consensus-api/internal/domain/entity"
	"z-consensus-api/internal/infrastructure/provider"
)

// ModelsRequest 模型列表查询请求
type ModelsRequest struct {
	EndpointURL string `json:"endpoint_url" binding:"required"`
	APIKey      string `json:"api_key,omitempty"`
	Type        string `json:"type,omitempty"` // openai / ollama / bedrock，默认 openai
	FreeOnly    bool   `json:"free_only,omitempty"`
}

// ModelsResponse 模型列表响应
type ModelsResponse struct {
	Models []string `json:"models"`
}

// ToListModelsRequest 将查询请求转换为提供商层请求
func (r *ModelsRequest) ToListModelsRequest() (provider.ListModelsRequest, error) {
	pt := entity.ProviderOpenAICompatible
	if r.Type != "" {
		parsed, err := entity.ParseProviderType(r.Type)
		if err != nil {
			return provider.ListModelsRequest{}, err
		}
		pt = parsed
	}
	return provider.ListModelsRequest{
		Endpoint: r.EndpointURL,
		APIKey:   r.APIKey,
		Type:     pt,
		FreeOnly: r.FreeOnly,
	}, nil
}
