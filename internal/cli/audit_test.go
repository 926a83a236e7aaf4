package cli

import (
	"reflect"
	"testing"
)

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected a config, got nil")
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Aggregate.BucketSize != 100 {
		t.Errorf("expected default bucket size 100, got %d", cfg.Aggregate.BucketSize)
	}
}

func TestBuildConfig_Flags(t *testing.T) {
	noCache = true
	bucketSize = 250
	defer func() {
		noCache = false
		bucketSize = 0
	}()

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled with --no-cache")
	}
	if cfg.Aggregate.BucketSize != 250 {
		t.Errorf("expected bucket size 250, got %d", cfg.Aggregate.BucketSize)
	}
}

func TestBuildConfig_OpenAIRequiresKey(t *testing.T) {
	llmEnabled = true
	llmProvider = "openai"
	defer func() {
		llmEnabled = false
		llmProvider = "openai"
	}()
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := buildConfig(); err == nil {
		t.Error("expected an error when OPENAI_API_KEY is unset")
	}
}

func TestBuildConfig_OllamaBaseURL(t *testing.T) {
	llmEnabled = true
	llmProvider = "ollama"
	defer func() {
		llmEnabled = false
		llmProvider = "openai"
	}()
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.local:11434")

	cfg, err := buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://ollama.local:11434" {
		t.Errorf("expected base URL from environment, got %q", cfg.LLM.BaseURL)
	}
}

func TestSplitRoles(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"dates", []string{"dates"}},
		{"dates,amounts", []string{"dates", "amounts"}},
		{" dates , amounts ,", []string{"dates", "amounts"}},
	}

	for _, tt := range tests {
		if got := splitRoles(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitRoles(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
