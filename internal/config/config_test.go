package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":3000" {
		t.Fatalf("expected :3000, got %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.ChatModel != "gpt-4o" {
		t.Fatalf("unexpected provider/model: %s/%s", cfg.AI.Provider, cfg.AI.ChatModel)
	}
	if cfg.AI.MaxOutputTokens != 500 {
		t.Fatalf("expected 500 max tokens, got %d", cfg.AI.MaxOutputTokens)
	}
	if cfg.AI.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.AI.Timeout)
	}
	if cfg.Session.MaxSessions != 0 || cfg.Session.IdleTTL != 0 {
		t.Fatalf("expected unbounded sessions by default, got %+v", cfg.Session)
	}
	if cfg.AI.VoiceModelOrDefault() != "gpt-4o" {
		t.Fatalf("voice model should fall back to chat model, got %s", cfg.AI.VoiceModelOrDefault())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("VOICE_MODEL", "gpt-4")
	t.Setenv("SESSION_MAX", "100")
	t.Setenv("SESSION_IDLE_TTL", "15m")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.AI.VoiceModelOrDefault() != "gpt-4" {
		t.Fatalf("unexpected voice model %s", cfg.AI.VoiceModelOrDefault())
	}
	if cfg.Session.MaxSessions != 100 || cfg.Session.IdleTTL != 15*time.Minute {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.AI.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.AI.Timeout)
	}
}

func TestLoadRequiresProviderCredentials(t *testing.T) {
	cases := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"ark":       "ARK_API_KEY",
	}
	for provider, want := range cases {
		t.Run(provider, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", provider)
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("ANTHROPIC_API_KEY", "")
			t.Setenv("ARK_API_KEY", "")

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Fatalf("expected error mentioning %s, got %v", want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LLM_TEMPERATURE":       "3",
		"LLM_MAX_OUTPUT_TOKENS": "0",
		"SESSION_MAX":           "-1",
		"PORT":                  "80 80",
		"LLM_TIMEOUT":           "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", "mock")
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
