package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

// ErrEmptyReply is returned when a provider answers without any text.
var ErrEmptyReply = errors.New("completion returned no text")

// Request is one completion call: a system instruction followed by the
// conversation so far.
type Request struct {
	Model           string
	System          string
	Turns           []chat.Turn
	MaxOutputTokens int
	Temperature     float32
}

// Completer produces the assistant's next reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewCompleter builds the completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL), nil
	case config.ProviderArk:
		chatModel, err := cfg.NewArkChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChainCompleter(ctx, chatModel)
	case config.ProviderMock:
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

func checkReply(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
