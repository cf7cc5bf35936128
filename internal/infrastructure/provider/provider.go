package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"z-consensus-api/internal/domain/entity"
)

// GenerateRequest 一次生成调用的输入
type GenerateRequest struct {
	Prompt     string
	Attachment *entity.Attachment
}

// Adapter 提供商适配器，负责通用请求与具体线上协议间的双向转换
// 适配器不做重试，重试由调用方的策略负责
type Adapter interface {
	// Type 返回提供商类型
	Type() entity.ProviderType
	// Model 返回目标模型名
	Model() string
	// Generate 发起一次生成调用，返回纯文本或分类错误 *Error
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// defaultCallTimeout 未注入 HTTP 客户端时的调用超时
const defaultCallTimeout = 120 * time.Second

// Option 适配器构造选项
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient 注入自定义 HTTP 客户端，便于连接复用与测试
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New 按参与者配置构造对应类型的适配器
// 提供商集合是封闭的：新增提供商意味着新增一个适配器实现
func New(cfg entity.ParticipantConfig, opts ...Option) (Adapter, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultCallTimeout}
	}

	switch cfg.Type {
	case entity.ProviderOpenAICompatible:
		return newOpenAI(cfg, o.httpClient), nil
	case entity.ProviderOllama:
		return newOllama(cfg, o.httpClient), nil
	case entity.ProviderBedrock:
		return newBedrock(cfg, o.httpClient), nil
	default:
		return nil, &Error{
			Kind:     KindBadRequest,
			Provider: cfg.Type,
			Model:    cfg.Model,
			Message:  "unsupported provider type",
		}
	}
}

// doJSON 发送 JSON 请求并返回状态码与完整响应体
// 传输层错误在此处完成分类，非 2xx 状态码留给调用方判定
func doJSON(ctx context.Context, client *http.Client, pt entity.ProviderType, model, method, url string, headers map[string]string, payload any) (int, []byte, *Error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &Error{Kind: KindBadRequest, Provider: pt, Model: model, Message: "encode request body", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, &Error{Kind: KindBadRequest, Provider: pt, Model: model, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, transportError(pt, model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, transportError(pt, model, err)
	}
	return resp.StatusCode, body, nil
}
