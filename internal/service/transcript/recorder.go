package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Exchange is one answered utterance: the user's message and the reply it got.
type Exchange struct {
	Timestamp         time.Time `json:"timestamp"`
	UserID            string    `json:"userId"`
	Channel           string    `json:"channel"`
	Model             string    `json:"model"`
	UserMessage       string    `json:"userMessage"`
	AssistantResponse string    `json:"assistantResponse"`
}

// Recorder persists exchanges for audit. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// FileRecorder appends exchanges to a JSON Lines file.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init transcript file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to init transcript file: %w", err)
	}
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) Record(_ context.Context, ex Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(ex); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}
