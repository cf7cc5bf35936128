package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"z-consensus-api/internal/domain/entity"
)

// ListModelsRequest 模型列表查询参数
type ListModelsRequest struct {
	Endpoint string
	APIKey   string
	Type     entity.ProviderType
	// FreeOnly 仅在 OpenRouter 端点上生效，过滤 :free 后缀模型
	FreeOnly bool
}

// bedrockFallbackProfiles inference-profiles 接口不可用时返回的常见推理配置
var bedrockFallbackProfiles = []string{
	"us.anthropic.claude-3-5-sonnet-20241022-v2:0",
	"us.anthropic.claude-3-5-haiku-20241022-v1:0",
	"us.anthropic.claude-3-opus-20240229-v1:0",
	"us.anthropic.claude-3-sonnet-20240229-v1:0",
	"us.anthropic.claude-3-haiku-20240307-v1:0",
	"us.meta.llama3-3-70b-instruct-v1:0",
	"us.meta.llama3-2-90b-instruct-v1:0",
	"us.meta.llama3-2-11b-instruct-v1:0",
	"us.mistral.mistral-large-2407-v1:0",
	"us.amazon.nova-pro-v1:0",
	"us.amazon.nova-lite-v1:0",
	"us.amazon.nova-micro-v1:0",
	"anthropic.claude-3-5-sonnet-20241022-v2:0",
	"anthropic.claude-3-5-haiku-20241022-v1:0",
	"meta.llama3-3-70b-instruct-v1:0",
	"amazon.titan-text-premier-v1:0",
}

// ListModels 查询指定提供方端点上的可用模型标识
//
// Bedrock 列出推理配置，接口失败时回退到内置列表。Ollama 与 OpenAI 兼容端点
// 查询失败会返回错误而不回退。
func ListModels(ctx context.Context, client *http.Client, req ListModelsRequest) ([]string, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultCallTimeout}
	}
	switch req.Type {
	case entity.ProviderBedrock:
		return listBedrockModels(ctx, client, req)
	case entity.ProviderOllama:
		return listOllamaModels(ctx, client, req)
	case entity.ProviderOpenAICompatible:
		return listOpenAIModels(ctx, client, req)
	default:
		return nil, &Error{
			Kind:     KindBadRequest,
			Provider: req.Type,
			Message:  "unsupported provider type",
		}
	}
}

type bedrockProfilesResponse struct {
	InferenceProfileSummaries []struct {
		InferenceProfileID  string `json:"inferenceProfileId"`
		InferenceProfileArn string `json:"inferenceProfileArn"`
	} `json:"inferenceProfileSummaries"`
}

// listBedrockModels 列出账号可见的推理配置，控制面接口与 invoke 不在同一域名
func listBedrockModels(ctx context.Context, client *http.Client, req ListModelsRequest) ([]string, error) {
	if req.APIKey == "" {
		return nil, &Error{
			Kind:     KindAuth,
			Provider: entity.ProviderBedrock,
			Message:  "api key is required",
		}
	}

	region := bedrockRegion(req.Endpoint)
	listURL := fmt.Sprintf("https://bedrock.%s.amazonaws.com/inference-profiles", region)
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}

	status, body, perr := doJSON(ctx, client, entity.ProviderBedrock, "", http.MethodGet, listURL, headers, nil)
	if perr != nil {
		return fallbackProfiles(), nil
	}
	if status < 200 || status >= 300 {
		return fallbackProfiles(), nil
	}

	var out bedrockProfilesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fallbackProfiles(), nil
	}

	ids := make([]string, 0, len(out.InferenceProfileSummaries))
	for _, p := range out.InferenceProfileSummaries {
		id := p.InferenceProfileID
		if id == "" {
			id = p.InferenceProfileArn
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fallbackProfiles(), nil
	}
	sort.Strings(ids)
	return ids, nil
}

func fallbackProfiles() []string {
	ids := make([]string, len(bedrockFallbackProfiles))
	copy(ids, bedrockFallbackProfiles)
	sort.Strings(ids)
	return ids
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func listOllamaModels(ctx context.Context, client *http.Client, req ListModelsRequest) ([]string, error) {
	tagsURL := strings.TrimSuffix(req.Endpoint, "/") + "/api/tags"

	status, body, perr := doJSON(ctx, client, entity.ProviderOllama, "", http.MethodGet, tagsURL, nil, nil)
	if perr != nil {
		return nil, perr
	}
	if status < 200 || status >= 300 {
		return nil, statusError(entity.ProviderOllama, "", status, body)
	}

	var out ollamaTagsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, malformedError(entity.ProviderOllama, "", "decode tags response", body)
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	// 部分兼容实现把列表放在 models 键下
	Models []struct {
		ID string `json:"id"`
	} `json:"models"`
}

func listOpenAIModels(ctx context.Context, client *http.Client, req ListModelsRequest) ([]string, error) {
	modelsURL := strings.TrimSuffix(req.Endpoint, "/") + "/models"

	var headers map[string]string
	if req.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + req.APIKey}
	}

	status, body, perr := doJSON(ctx, client, entity.ProviderOpenAICompatible, "", http.MethodGet, modelsURL, headers, nil)
	if perr != nil {
		return nil, perr
	}
	if status < 200 || status >= 300 {
		return nil, statusError(entity.ProviderOpenAICompatible, "", status, body)
	}

	var out openAIModelsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, malformedError(entity.ProviderOpenAICompatible, "", "decode models response", body)
	}

	entries := out.Data
	if len(entries) == 0 {
		entries = out.Models
	}

	freeFilter := req.FreeOnly && strings.Contains(strings.ToLower(req.Endpoint), "openrouter")
	ids := make([]string, 0, len(entries))
	for _, m := range entries {
		if m.ID == "" {
			continue
		}
		if freeFilter && !strings.HasSuffix(m.ID, ":free") {
			continue
		}
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
