package provider

import "strings"

// visionMarkers 视觉模型名称特征，命中任一即认为模型可接收图像
var visionMarkers = []string{
	"gpt-4o",
	"gpt-4.1",
	"gpt-4-turbo",
	"gpt-4-vision",
	"gpt-5",
	"chatgpt-4o",
	"claude-3",
	"claude-opus",
	"claude-sonnet",
	"claude-haiku",
	"gemini",
	"llava",
	"bakllava",
	"moondream",
	"minicpm-v",
	"pixtral",
	"nova",
	"vision",
	"-vl",
	"vl-",
}

// oSeriesPrefixes OpenAI o 系列短名，需要前缀匹配避免误伤
var oSeriesPrefixes = []string{"o1", "o3", "o4"}

// IsVisionCapable 根据模型名判断是否可接收图像载荷
// 名称表无法穷举，未知模型按不支持处理并走文字占位降级
func IsVisionCapable(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return false
	}
	// openrouter 风格的 "vendor/model" 标识只看模型段
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	for _, marker := range visionMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	for _, p := range oSeriesPrefixes {
		if m == p || strings.HasPrefix(m, p+"-") {
			return true
		}
	}
	return false
}
