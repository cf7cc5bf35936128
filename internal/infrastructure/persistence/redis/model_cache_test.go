package redis

import (
	"strings"
	"testing"
	"time"
)

func TestModelListKey(t *testing.T) {
	t.Parallel()

	key := ModelListKey("https://api.openai.com/v1", "openai", false, "sk-secret")
	if !strings.HasPrefix(key, "models:") {
		t.Errorf("key = %q, want models: prefix", key)
	}
	if got := len(strings.TrimPrefix(key, "models:")); got != 16 {
		t.Errorf("digest length = %d, want 16", got)
	}
	// 凭证只进摘要
	if strings.Contains(key, "sk-secret") {
		t.Errorf("key %q leaks the api key", key)
	}

	if again := ModelListKey("https://api.openai.com/v1", "openai", false, "sk-secret"); again != key {
		t.Errorf("key not deterministic: %q != %q", again, key)
	}
}

func TestModelListKeyVariesByInput(t *testing.T) {
	t.Parallel()

	base := ModelListKey("https://api.openai.com/v1", "openai", false, "sk-secret")
	variants := map[string]string{
		"endpoint":  ModelListKey("https://api.openai.com/v2", "openai", false, "sk-secret"),
		"type":      ModelListKey("https://api.openai.com/v1", "ollama", false, "sk-secret"),
		"free_only": ModelListKey("https://api.openai.com/v1", "openai", true, "sk-secret"),
		"api_key":   ModelListKey("https://api.openai.com/v1", "openai", false, "sk-other"),
	}
	for name, got := range variants {
		if got == base {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestNewModelListCacheDefaultTTL(t *testing.T) {
	t.Parallel()

	if got := NewModelListCache(nil, 0).ttl; got != defaultModelListTTL {
		t.Errorf("ttl = %v, want default", got)
	}
	if got := NewModelListCache(nil, time.Minute).ttl; got != time.Minute {
		t.Errorf("ttl = %v, want 1m", got)
	}
}
