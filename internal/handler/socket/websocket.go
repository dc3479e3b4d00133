package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chat-relay/backend/internal/observability"
	"github.com/zhouzirui/chat-relay/backend/internal/service/relay"
)

// Inbound event names.
const (
	EventChatMessage  = "chat message"
	EventVoiceMessage = "voice message"
	EventConnected    = "connected"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	queueSize    = 16

	// maxMessageSize caps one inbound frame; larger frames close the connection.
	maxMessageSize = 64 << 10
)

const (
	unsupportedEventMessage = "지원하지 않는 요청입니다."
	invalidPayloadMessage   = "잘못된 메시지 형식입니다."
	queueFullMessage        = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
)

// Relay answers one utterance on the connection it arrived on.
type Relay interface {
	HandleUtterance(ctx context.Context, out relay.Emitter, u relay.Utterance) error
}

// Handler serves the push channel.
type Handler struct {
	relay    Relay
	upgrader websocket.Upgrader
}

// New creates a push-channel handler backed by r.
func New(r Relay) *Handler {
	return &Handler{
		relay: r,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/socket", h.handleWebSocket)
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ChatMessage is the payload of a "chat message" event.
type ChatMessage struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// VoiceMessage is the payload of a "voice message" event. AudioData carries
// text already transcribed by the browser.
type VoiceMessage struct {
	AudioData string `json:"audioData"`
	UserID    string `json:"userId"`
}

// connection implements relay.Emitter over one websocket.
type connection struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *connection) Emit(event string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(outgoingMessage{Event: event, Data: payload})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &connection{id: uuid.NewString(), conn: conn}

	ctx, cancel := context.WithCancel(observability.WithConnectionID(r.Context(), c.id))
	defer cancel()

	log := observability.LoggerFromContext(ctx)
	log.Info("websocket connected", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	queue := make(chan inboundMessage, queueSize)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for msg := range queue {
			if ctx.Err() != nil {
				continue
			}
			h.dispatch(ctx, c, msg)
		}
	}()

	if err := c.Emit(EventConnected, map[string]string{"id": c.id}); err != nil {
		log.Warn("failed to send connected event", "error", err)
	}

	h.readLoop(ctx, c, queue)

	cancel()
	close(queue)
	<-workerDone
	log.Info("websocket disconnected")
}

func (h *Handler) readLoop(ctx context.Context, c *connection, queue chan<- inboundMessage) {
	log := observability.LoggerFromContext(ctx)

	for {
		kind, raw, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				log.Warn("inbound frame too large, closing", "limit", maxMessageSize)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				log.Warn("websocket read error", "error", err)
			}
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if kind != websocket.TextMessage {
			h.reject(ctx, c, invalidPayloadMessage)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			h.reject(ctx, c, invalidPayloadMessage)
			continue
		}

		select {
		case queue <- msg:
		default:
			log.Warn("inbound queue full, dropping event", "event", msg.Event)
			h.reject(ctx, c, queueFullMessage)
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, c *connection, msg inboundMessage) {
	var u relay.Utterance

	switch msg.Event {
	case EventChatMessage:
		var p ChatMessage
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			h.reject(ctx, c, invalidPayloadMessage)
			return
		}
		u = relay.Utterance{UserID: p.UserID, Text: p.Message, Channel: relay.ChannelText}
	case EventVoiceMessage:
		var p VoiceMessage
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			h.reject(ctx, c, invalidPayloadMessage)
			return
		}
		u = relay.Utterance{UserID: p.UserID, Text: p.AudioData, Channel: relay.ChannelVoice}
	default:
		observability.LoggerFromContext(ctx).Debug("unsupported event", "event", msg.Event)
		h.reject(ctx, c, unsupportedEventMessage)
		return
	}

	if err := h.relay.HandleUtterance(ctx, c, u); err != nil && !errors.Is(err, context.Canceled) {
		observability.LoggerFromContext(ctx).Warn("utterance not answered", "user_id", u.UserID, "event", msg.Event, "error", err)
	}
}

func (h *Handler) reject(ctx context.Context, c *connection, message string) {
	if err := c.Emit(relay.EventError, relay.ErrorNotice{Message: message}); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to send error event", "error", err)
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
