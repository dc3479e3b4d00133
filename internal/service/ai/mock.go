package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

// MockCompleter answers without calling any service, for local development.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

func (m *MockCompleter) Complete(_ context.Context, req Request) (string, error) {
	for i := len(req.Turns) - 1; i >= 0; i-- {
		if req.Turns[i].Role == chat.RoleUser {
			return fmt.Sprintf("말씀 잘 들었어요. %q 라고 하셨죠. 조금 더 이야기해 주실래요?", req.Turns[i].Content), nil
		}
	}
	return "", ErrEmptyReply
}
