package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "configs", name), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_TEST_SET", "from-env")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "${EXPAND_TEST_SET}", want: "from-env"},
		{name: "set variable ignores default", input: "${EXPAND_TEST_SET:fallback}", want: "from-env"},
		{name: "unset with default", input: "${EXPAND_TEST_UNSET:fallback}", want: "fallback"},
		{name: "unset with empty default", input: "${EXPAND_TEST_UNSET:}", want: ""},
		{name: "unset without default stays", input: "${EXPAND_TEST_UNSET}", want: "${EXPAND_TEST_UNSET}"},
		{name: "embedded", input: "host: ${EXPAND_TEST_SET}:8080", want: "host: from-env:8080"},
		{name: "no placeholder", input: "plain text", want: "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.input); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "app:\n  name: consensus-test\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "consensus-test" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.Server.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.HTTP.Port)
	}
	if cfg.Consensus.ParticipantRetry.MaxAttempts != 3 {
		t.Errorf("participant max attempts = %d", cfg.Consensus.ParticipantRetry.MaxAttempts)
	}
	if cfg.Consensus.ChairmanRetry.MaxAttempts != 5 {
		t.Errorf("chairman max attempts = %d", cfg.Consensus.ChairmanRetry.MaxAttempts)
	}
	if cfg.Consensus.CallTimeout != 120*time.Second {
		t.Errorf("call timeout = %v", cfg.Consensus.CallTimeout)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
	if cfg.Cache.ModelListTTL != 5*time.Minute {
		t.Errorf("model list ttl = %v", cfg.Cache.ModelListTTL)
	}
	if cfg.Security.RateLimit.Enabled {
		t.Error("rate limit should default to disabled")
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("metrics config = %+v", cfg.Observability.Metrics)
	}
}

func TestLoadExpandsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "server:\n  http:\n    port: ${TEST_HTTP_PORT:9090}\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTP.Port != 9090 {
		t.Errorf("port = %d, want placeholder default 9090", cfg.Server.HTTP.Port)
	}

	t.Setenv("TEST_HTTP_PORT", "7070")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTP.Port != 7070 {
		t.Errorf("port = %d, want env value 7070", cfg.Server.HTTP.Port)
	}
}

func TestLoadMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "app:\n  name: consensus-test\nserver:\n  http:\n    port: 8080\n")
	writeConfig(t, dir, "config.development.yaml", "server:\n  http:\n    port: 8181\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// 环境特定配置覆盖默认配置，未覆盖的键保留
	if cfg.Server.HTTP.Port != 8181 {
		t.Errorf("port = %d, want 8181 from development file", cfg.Server.HTTP.Port)
	}
	if cfg.App.Name != "consensus-test" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
}

func TestLoadEnvVarOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "app:\n  name: consensus-test\n")
	t.Chdir(dir)
	t.Setenv("CONSENSUS_CALL_TIMEOUT", "42s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Consensus.CallTimeout != 42*time.Second {
		t.Errorf("call timeout = %v, want 42s from env", cfg.Consensus.CallTimeout)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected error when default config file is missing")
	}
}
