package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderArk       = "ark"
	ProviderMock      = "mock"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Session    SessionConfig
	Transcript TranscriptConfig
	Log        LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	addr, err := resolveAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("invalid SESSION_MAX value %d: must be >= 0", c.Session.MaxSessions)
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("invalid SESSION_IDLE_TTL value %s: must be >= 0", c.Session.IdleTTL)
	}
	if c.Session.IdleTTL > 0 && strings.TrimSpace(c.Session.SweepSchedule) == "" {
		return errors.New("SESSION_SWEEP_SCHEDULE is required when SESSION_IDLE_TTL is set")
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port      string `env:"PORT" envDefault:"3000"`
	StaticDir string `env:"STATIC_DIR"`

	// Addr is derived from Port by Load.
	Addr string
}

// resolveAddr 解析服务器监听地址。
func resolveAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider         string        `env:"LLM_PROVIDER" envDefault:"openai"`
	ChatModel        string        `env:"CHAT_MODEL" envDefault:"gpt-4o"`
	VoiceModel       string        `env:"VOICE_MODEL"`
	MaxOutputTokens  int           `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"500"`
	Temperature      float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	Timeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	PersonaID        string        `env:"PERSONA_ID" envDefault:"pastoral-counselor"`
	SystemPromptPath string        `env:"SYSTEM_PROMPT_PATH"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`

	Ark ArkConfig
}

// ArkConfig holds Volcengine Ark credentials.
type ArkConfig struct {
	APIKey    string `env:"ARK_API_KEY"`
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	BaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

// VoiceModelOrDefault returns the model used for transcribed speech. It falls
// back to the text model so both entry points agree unless told otherwise.
func (c AIConfig) VoiceModelOrDefault() string {
	if m := strings.TrimSpace(c.VoiceModel); m != "" {
		return m
	}
	return c.ChatModel
}

// Validate checks that the selected provider has what it needs.
func (c AIConfig) Validate() error {
	if strings.TrimSpace(c.ChatModel) == "" {
		return errors.New("CHAT_MODEL is required")
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("invalid LLM_MAX_OUTPUT_TOKENS value %d: must be > 0", c.MaxOutputTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("invalid LLM_TEMPERATURE value %v: must be within [0, 2]", c.Temperature)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid LLM_TIMEOUT value %s: must be > 0", c.Timeout)
	}

	switch strings.ToLower(c.Provider) {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderArk:
		if !c.Ark.Enabled() {
			return errors.New("Ark 凭证缺失，至少提供 ARK_API_KEY 或 AK/SK 组合")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	return nil
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Ark.Enabled() {
		return nil, errors.New("Ark 凭证缺失，至少提供 ARK_API_KEY 或 AK/SK 组合")
	}

	maxTokens := c.MaxOutputTokens
	temperature := c.Temperature

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.Ark.BaseURL,
		Region:      c.Ark.Region,
		APIKey:      c.Ark.APIKey,
		AccessKey:   c.Ark.AccessKey,
		SecretKey:   c.Ark.SecretKey,
		Model:       c.ChatModel,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

// SessionConfig controls session retention.
type SessionConfig struct {
	MaxSessions   int           `env:"SESSION_MAX" envDefault:"0"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"0s"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 1m"`
}

// TranscriptConfig enables the JSONL exchange log when Path is set.
type TranscriptConfig struct {
	Path string `env:"TRANSCRIPT_LOG_PATH"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}
