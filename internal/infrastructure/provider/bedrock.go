package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"z-consensus-api/internal/domain/entity"
)

// defaultBedrockRegion 端点未携带 region 参数时的默认区域
const defaultBedrockRegion = "us-east-1"

// bedrockFamily Bedrock 模型家族，请求体与响应结构按家族区分
type bedrockFamily string

const (
	familyClaude  bedrockFamily = "claude"
	familyTitan   bedrockFamily = "titan"
	familyNova    bedrockFamily = "nova"
	familyLlama   bedrockFamily = "llama"
	familyMistral bedrockFamily = "mistral"
	familyGeneric bedrockFamily = "generic"
)

// bedrockFamilyOf 从模型标识（模型 ID 或推理配置 ID）推断家族
func bedrockFamilyOf(model string) bedrockFamily {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "claude"):
		return familyClaude
	case strings.Contains(m, "titan"):
		return familyTitan
	case strings.Contains(m, "nova"):
		return familyNova
	case strings.Contains(m, "llama"):
		return familyLlama
	case strings.Contains(m, "mistral"), strings.Contains(m, "mixtral"):
		return familyMistral
	default:
		return familyGeneric
	}
}

// bedrockAdapter AWS Bedrock invoke 协议适配器，使用 API Key 认证
// 配置端点只用于携带 region 查询参数，实际调用地址按区域拼接
type bedrockAdapter struct {
	model  string
	apiKey string
	region string
	family bedrockFamily
	client *http.Client
}

func newBedrock(cfg entity.ParticipantConfig, client *http.Client) *bedrockAdapter {
	return &bedrockAdapter{
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		region: bedrockRegion(cfg.Endpoint),
		family: bedrockFamilyOf(cfg.Model),
		client: client,
	}
}

// bedrockRegion 从端点的 region 查询参数提取区域
func bedrockRegion(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil {
		if r := u.Query().Get("region"); r != "" {
			return r
		}
	}
	return defaultBedrockRegion
}

func (a *bedrockAdapter) Type() entity.ProviderType { return entity.ProviderBedrock }

func (a *bedrockAdapter) Model() string { return a.model }

// invokeURL 推理配置 ID 与直接模型 ID 走同一个 invoke 端点
func (a *bedrockAdapter) invokeURL() string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke", a.region, a.model)
}

// claude 家族请求结构
type bedrockClaudeRequest struct {
	AnthropicVersion string                 `json:"anthropic_version"`
	MaxTokens        int                    `json:"max_tokens"`
	Messages         []bedrockClaudeMessage `json:"messages"`
}

type bedrockClaudeMessage struct {
	Role string `json:"role"`
	// Content 纯文本时为 string，带图像时为 []bedrockClaudeContent
	Content any `json:"content"`
}

type bedrockClaudeContent struct {
	Type   string               `json:"type"`
	Text   string               `json:"text,omitempty"`
	Source *bedrockClaudeSource `json:"source,omitempty"`
}

type bedrockClaudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// titan 家族请求结构
type bedrockTitanRequest struct {
	InputText            string             `json:"inputText"`
	TextGenerationConfig bedrockTitanConfig `json:"textGenerationConfig"`
}

type bedrockTitanConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

// nova 家族请求结构
type bedrockNovaRequest struct {
	Messages        []bedrockNovaMessage `json:"messages"`
	InferenceConfig bedrockNovaConfig    `json:"inferenceConfig"`
}

type bedrockNovaMessage struct {
	Role    string               `json:"role"`
	Content []bedrockNovaContent `json:"content"`
}

type bedrockNovaContent struct {
	Text string `json:"text"`
}

type bedrockNovaConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// llama 家族请求结构
type bedrockLlamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
}

// mistral 家族请求结构
type bedrockMistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Generate 按模型家族构造 invoke 请求体并解析对应的响应结构
// 家族不在支持范围内属于请求错误，不消耗重试预算
func (a *bedrockAdapter) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	if a.family == familyGeneric {
		return "", &Error{
			Kind:     KindBadRequest,
			Provider: a.Type(),
			Model:    a.model,
			Message:  "unsupported model family",
		}
	}

	// 图像内容块目前只有 claude 家族的协议支持，其余家族走占位降级
	visionOK := a.family == familyClaude && IsVisionCapable(a.model)
	prompt, img := applyAttachment(req.Prompt, req.Attachment, visionOK)

	payload := a.buildBody(prompt, img)
	headers := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}

	status, body, perr := doJSON(ctx, a.client, a.Type(), a.model, http.MethodPost, a.invokeURL(), headers, payload)
	if perr != nil {
		return "", perr
	}
	if status < 200 || status >= 300 {
		return "", statusError(a.Type(), a.model, status, body)
	}
	return a.extractText(body)
}

// buildBody 构造家族特定的请求体
func (a *bedrockAdapter) buildBody(prompt string, img *imagePayload) any {
	switch a.family {
	case familyClaude:
		var content any = prompt
		if img != nil {
			content = []bedrockClaudeContent{
				{Type: "image", Source: &bedrockClaudeSource{
					Type:      "base64",
					MediaType: img.mimeType,
					Data:      img.data,
				}},
				{Type: "text", Text: prompt},
			}
		}
		return bedrockClaudeRequest{
			AnthropicVersion: "bedrock-2023-05-31",
			MaxTokens:        4096,
			Messages:         []bedrockClaudeMessage{{Role: "user", Content: content}},
		}
	case familyTitan:
		return bedrockTitanRequest{
			InputText: prompt,
			TextGenerationConfig: bedrockTitanConfig{
				MaxTokenCount: 4096,
				Temperature:   0.7,
			},
		}
	case familyNova:
		return bedrockNovaRequest{
			Messages: []bedrockNovaMessage{
				{Role: "user", Content: []bedrockNovaContent{{Text: prompt}}},
			},
			InferenceConfig: bedrockNovaConfig{
				MaxTokens:   4096,
				Temperature: 0.7,
			},
		}
	case familyLlama:
		return bedrockLlamaRequest{
			Prompt:      prompt,
			MaxGenLen:   2048,
			Temperature: 0.7,
		}
	case familyMistral:
		return bedrockMistralRequest{
			Prompt:      prompt,
			MaxTokens:   4096,
			Temperature: 0.7,
		}
	default:
		return nil
	}
}

// 家族特定的响应结构
type bedrockClaudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type bedrockTitanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

type bedrockNovaResponse struct {
	Output struct {
		Message struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
}

type bedrockLlamaResponse struct {
	Generation string `json:"generation"`
}

type bedrockMistralResponse struct {
	Outputs []struct {
		Text string `json:"text"`
	} `json:"outputs"`
}

// extractText 解析家族特定的响应结构
func (a *bedrockAdapter) extractText(body []byte) (string, error) {
	switch a.family {
	case familyClaude:
		var out bedrockClaudeResponse
		if err := json.Unmarshal(body, &out); err != nil || len(out.Content) == 0 {
			return "", malformedError(a.Type(), a.model, "decode claude response", body)
		}
		return out.Content[0].Text, nil
	case familyTitan:
		var out bedrockTitanResponse
		if err := json.Unmarshal(body, &out); err != nil || len(out.Results) == 0 {
			return "", malformedError(a.Type(), a.model, "decode titan response", body)
		}
		return out.Results[0].OutputText, nil
	case familyNova:
		var out bedrockNovaResponse
		if err := json.Unmarshal(body, &out); err != nil || len(out.Output.Message.Content) == 0 {
			return "", malformedError(a.Type(), a.model, "decode nova response", body)
		}
		return out.Output.Message.Content[0].Text, nil
	case familyLlama:
		var out bedrockLlamaResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", malformedError(a.Type(), a.model, "decode llama response", body)
		}
		return out.Generation, nil
	case familyMistral:
		var out bedrockMistralResponse
		if err := json.Unmarshal(body, &out); err != nil || len(out.Outputs) == 0 {
			return "", malformedError(a.Type(), a.model, "decode mistral response", body)
		}
		return out.Outputs[0].Text, nil
	default:
		return "", malformedError(a.Type(), a.model, "unrecognized response shape", body)
	}
}
