package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"z-consensus-api/internal/domain/entity"
)

// ollamaAdapter Ollama generate 协议适配器
// 端点应为完整的 /api/generate URL
type ollamaAdapter struct {
	endpoint string
	model    string
	client   *http.Client
}

func newOllama(cfg entity.ParticipantConfig, client *http.Client) *ollamaAdapter {
	return &ollamaAdapter{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   client,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	// Images 裸 base64 字符串数组，不带 data URL 前缀
	Images []string `json:"images,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (a *ollamaAdapter) Type() entity.ProviderType { return entity.ProviderOllama }

func (a *ollamaAdapter) Model() string { return a.model }

// Generate 调用 generate 端点并提取 response 字段
func (a *ollamaAdapter) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	prompt, img := applyAttachment(req.Prompt, req.Attachment, IsVisionCapable(a.model))

	payload := ollamaRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
	}
	if img != nil {
		payload.Images = []string{img.data}
	}

	status, body, perr := doJSON(ctx, a.client, a.Type(), a.model, http.MethodPost, a.endpoint, nil, payload)
	if perr != nil {
		return "", perr
	}
	if status < 200 || status >= 300 {
		return "", statusError(a.Type(), a.model, status, body)
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", malformedError(a.Type(), a.model, "decode response", body)
	}
	if out.Error != "" {
		return "", malformedError(a.Type(), a.model, out.Error, nil)
	}
	return out.Response, nil
}
