// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
)

// ProviderType 提供商类型
type ProviderType string

const (
	ProviderOpenAICompatible ProviderType = "openai"
	ProviderOllama           ProviderType = "ollama"
	ProviderBedrock          ProviderType = "bedrock"
)

// ParseProviderType 解析提供商类型字符串
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOpenAICompatible:
		return ProviderOpenAICompatible, nil
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderBedrock:
		return ProviderBedrock, nil
	default:
		return "", fmt.Errorf("unknown provider type %q", s)
	}
}

// Valid 检查提供商类型是否合法
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderOpenAICompatible, ProviderOllama, ProviderBedrock:
		return true
	}
	return false
}

// ParticipantConfig 参与者配置，按请求传入，处理期间不可变
type ParticipantConfig struct {
	Endpoint string       `json:"endpoint"`
	Model    string       `json:"model"`
	APIKey   string       `json:"api_key"`
	Type     ProviderType `json:"type"`
}

// Validate 校验参与者配置
func (c ParticipantConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown provider type %q", c.Type)
	}
	return nil
}
