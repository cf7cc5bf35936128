package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"z-consensus-api/internal/domain/entity"
)

// openAIAdapter OpenAI 兼容协议适配器（OpenAI、OpenRouter 等）
// 请求直接发往配置的端点，端点应为完整的 chat completions URL
type openAIAdapter struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

func newOpenAI(cfg entity.ParticipantConfig, client *http.Client) *openAIAdapter {
	return &openAIAdapter{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   client,
	}
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role string `json:"role"`
	// Content 纯文本时为 string，多模态时为 []openAIContentPart
	Content any `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *openAIAdapter) Type() entity.ProviderType { return entity.ProviderOpenAICompatible }

func (a *openAIAdapter) Model() string { return a.model }

// Generate 调用 chat completions 端点并提取首个 choice 的文本
func (a *openAIAdapter) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	prompt, img := applyAttachment(req.Prompt, req.Attachment, IsVisionCapable(a.model))

	var content any = prompt
	if img != nil {
		// 图像以 data URL 形式进入多模态内容数组
		content = []openAIContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &openAIImageURL{
				URL: "data:" + img.mimeType + ";base64," + img.data,
			}},
		}
	}

	payload := openAIRequest{
		Model:    a.model,
		Messages: []openAIMessage{{Role: "user", Content: content}},
	}

	headers := map[string]string{}
	if a.apiKey != "" {
		headers["Authorization"] = "Bearer " + a.apiKey
	}

	status, body, perr := doJSON(ctx, a.client, a.Type(), a.model, http.MethodPost, a.endpoint, headers, payload)
	if perr != nil {
		return "", perr
	}
	if status < 200 || status >= 300 {
		return "", statusError(a.Type(), a.model, status, body)
	}

	var out openAIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", malformedError(a.Type(), a.model, "decode response", body)
	}
	if len(out.Choices) == 0 {
		return "", malformedError(a.Type(), a.model, "response has no choices", body)
	}
	return out.Choices[0].Message.Content, nil
}
