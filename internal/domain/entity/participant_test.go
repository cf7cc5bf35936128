package entity

import (
	"strings"
	"testing"
)

func TestParseProviderType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ProviderType
		wantErr bool
	}{
		{name: "openai", input: "openai", want: ProviderOpenAICompatible},
		{name: "ollama", input: "ollama", want: ProviderOllama},
		{name: "bedrock", input: "bedrock", want: ProviderBedrock},
		{name: "uppercase", input: "OpenAI", want: ProviderOpenAICompatible},
		{name: "padded", input: "  bedrock  ", want: ProviderBedrock},
		{name: "unknown", input: "anthropic", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProviderType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderTypeValid(t *testing.T) {
	t.Parallel()

	for _, pt := range []ProviderType{ProviderOpenAICompatible, ProviderOllama, ProviderBedrock} {
		if !pt.Valid() {
			t.Errorf("%q should be valid", pt)
		}
	}
	for _, pt := range []ProviderType{"", "gpt", "OPENAI"} {
		if pt.Valid() {
			t.Errorf("%q should be invalid", pt)
		}
	}
}

func TestParticipantConfigValidate(t *testing.T) {
	t.Parallel()

	valid := ParticipantConfig{
		Endpoint: "https://api.example.com/v1/chat/completions",
		Model:    "gpt-4o",
		APIKey:   "sk-test",
		Type:     ProviderOpenAICompatible,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *ParticipantConfig)
		wantMsg string
	}{
		{
			name:    "missing endpoint",
			mutate:  func(c *ParticipantConfig) { c.Endpoint = "  " },
			wantMsg: "endpoint is required",
		},
		{
			name:    "missing model",
			mutate:  func(c *ParticipantConfig) { c.Model = "" },
			wantMsg: "model is required",
		},
		{
			name:    "bad type",
			mutate:  func(c *ParticipantConfig) { c.Type = "anthropic" },
			wantMsg: "unknown provider type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}

	// API Key 是否必填由提供方决定，这里不强制
	noKey := valid
	noKey.APIKey = ""
	if err := noKey.Validate(); err != nil {
		t.Errorf("config without api key rejected: %v", err)
	}
}
