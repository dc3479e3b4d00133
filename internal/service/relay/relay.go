package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/observability"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/transcript"
)

var (
	ErrUserRequired   = errors.New("user id is required")
	ErrEmptyUtterance = errors.New("utterance is empty")
)

// Outbound event names.
const (
	EventBotResponse = "bot response"
	EventError       = "error"
)

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Channel is how an utterance reached the server.
type Channel string

const (
	ChannelText  Channel = "text"
	ChannelVoice Channel = "voice"
)

var failureMessages = map[Channel]string{
	ChannelText:  "죄송합니다. 일시적인 오류가 발생했습니다.",
	ChannelVoice: "음성 처리 중 오류가 발생했습니다.",
}

const (
	missingUserMessage  = "사용자 정보를 확인할 수 없습니다. 페이지를 새로고침해주세요."
	emptyMessageMessage = "메시지를 입력해주세요."
)

// Utterance is one inbound user message.
type Utterance struct {
	UserID  string
	Text    string
	Channel Channel
}

// BotResponse is the payload of a "bot response" event.
type BotResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorNotice is the payload of an "error" event.
type ErrorNotice struct {
	Message string `json:"message"`
}

// Emitter delivers a named event to the connection an utterance came from.
type Emitter interface {
	Emit(event string, payload any) error
}

// Config tunes completion requests.
type Config struct {
	SystemPrompt    string
	Models          map[Channel]string
	MaxOutputTokens int
	Temperature     float32
	Timeout         time.Duration
}

// Relay turns inbound utterances into replies, one exchange per user at a time.
type Relay struct {
	store     *chatservice.Service
	completer ai.Completer
	recorder  transcript.Recorder
	cfg       Config
	now       func() time.Time
}

// New wires a Relay. recorder may be nil.
func New(store *chatservice.Service, completer ai.Completer, recorder transcript.Recorder, cfg Config) *Relay {
	return &Relay{
		store:     store,
		completer: completer,
		recorder:  recorder,
		cfg:       cfg,
		now:       time.Now,
	}
}

// HandleUtterance records the utterance, asks the completer for a reply and
// emits either a "bot response" or a single "error" event to out. A failed
// completion leaves the user turn in history without an answer.
func (r *Relay) HandleUtterance(ctx context.Context, out Emitter, u Utterance) error {
	log := observability.LoggerFromContext(ctx).With("user_id", u.UserID, "channel", u.Channel)

	if strings.TrimSpace(u.UserID) == "" {
		r.emit(ctx, out, EventError, ErrorNotice{Message: missingUserMessage})
		return ErrUserRequired
	}
	if strings.TrimSpace(u.Text) == "" {
		r.emit(ctx, out, EventError, ErrorNotice{Message: emptyMessageMessage})
		return ErrEmptyUtterance
	}

	sess, release, err := r.store.Acquire(ctx, u.UserID)
	if err != nil {
		r.emit(ctx, out, EventError, ErrorNotice{Message: failureMessage(u.Channel)})
		return fmt.Errorf("wait for session: %w", err)
	}
	defer release()

	if _, err := sess.Append(chat.RoleUser, u.Text); err != nil {
		r.emit(ctx, out, EventError, ErrorNotice{Message: failureMessage(u.Channel)})
		return fmt.Errorf("append user turn: %w", err)
	}

	req := ai.Request{
		Model:           r.modelFor(u.Channel),
		System:          r.cfg.SystemPrompt,
		Turns:           sess.Turns(),
		MaxOutputTokens: r.cfg.MaxOutputTokens,
		Temperature:     r.cfg.Temperature,
	}

	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := r.completer.Complete(callCtx, req)
	if err != nil {
		log.Error("completion failed", "model", req.Model, "turns", len(req.Turns), "duration", time.Since(start), "error", err)
		r.emit(ctx, out, EventError, ErrorNotice{Message: failureMessage(u.Channel)})
		return fmt.Errorf("complete utterance: %w", err)
	}

	if _, err := sess.Append(chat.RoleAssistant, reply); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}

	now := r.now().UTC()
	if r.recorder != nil {
		ex := transcript.Exchange{
			Timestamp:         now,
			UserID:            sess.UserID(),
			Channel:           string(u.Channel),
			Model:             req.Model,
			UserMessage:       u.Text,
			AssistantResponse: reply,
		}
		if err := r.recorder.Record(ctx, ex); err != nil {
			log.Warn("failed to record exchange", "error", err)
		}
	}

	r.emit(ctx, out, EventBotResponse, BotResponse{
		Message:   reply,
		Timestamp: now.Format(timestampLayout),
	})

	log.Info("utterance answered", "model", req.Model, "turns", len(req.Turns)+1, "duration", time.Since(start))
	return nil
}

func (r *Relay) modelFor(ch Channel) string {
	if m := r.cfg.Models[ch]; m != "" {
		return m
	}
	return r.cfg.Models[ChannelText]
}

func failureMessage(ch Channel) string {
	if msg, ok := failureMessages[ch]; ok {
		return msg
	}
	return failureMessages[ChannelText]
}

func (r *Relay) emit(ctx context.Context, out Emitter, event string, payload any) {
	if err := out.Emit(event, payload); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to emit event", "event", event, "error", err)
	}
}
