package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/observability"
)

var ErrInvalidRole = errors.New("invalid turn role")

// Config bounds how long sessions are retained. The zero value keeps every
// session for the lifetime of the process.
type Config struct {
	// MaxSessions caps the number of live sessions; the least recently used
	// session is dropped when the cap is exceeded. Zero means unbounded.
	MaxSessions int
	// IdleTTL is how long a session may stay untouched before EvictIdle drops it.
	// Zero disables idle eviction.
	IdleTTL time.Duration
}

// Service is the process-wide session store: exactly one Session per user id,
// created on first use.
type Service struct {
	mu       sync.RWMutex
	sessions index
	idleTTL  time.Duration
	now      func() time.Time
}

// NewService builds an in-memory session store.
func NewService(cfg Config) *Service {
	s := &Service{
		idleTTL: cfg.IdleTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if cfg.MaxSessions > 0 {
		idx, err := newLRUIndex(cfg.MaxSessions, func(userID string, sess *Session) {
			observability.Logger().Debug("session dropped from index",
				"user_id", userID,
				"turns", sess.Info().Turns,
			)
		})
		if err == nil {
			s.sessions = idx
			return s
		}
		observability.Logger().Warn("falling back to unbounded session store", "error", err)
	}

	s.sessions = make(mapIndex)
	return s
}

// GetOrCreate returns the session for userID, registering an empty one if
// the user has not been seen before.
func (s *Service) GetOrCreate(ctx context.Context, userID string) *Session {
	s.mu.Lock()
	sess, created := s.getOrCreateLocked(userID)
	s.mu.Unlock()

	if created {
		observability.LoggerFromContext(ctx).Info("session created", "user_id", userID)
	}
	return sess
}

// Acquire returns the user's session once the caller holds its gate. The
// session is marked busy before the store lock is released, so capacity and
// idle eviction cannot drop it while the caller waits or holds the gate.
func (s *Service) Acquire(ctx context.Context, userID string) (*Session, func(), error) {
	s.mu.Lock()
	sess, created := s.getOrCreateLocked(userID)
	prev, release := sess.enqueue()
	s.mu.Unlock()

	if created {
		observability.LoggerFromContext(ctx).Info("session created", "user_id", userID)
	}

	release, err := sess.wait(ctx, prev, release)
	if err != nil {
		return nil, nil, err
	}
	return sess, release, nil
}

func (s *Service) getOrCreateLocked(userID string) (*Session, bool) {
	if sess, ok := s.sessions.get(userID); ok {
		sess.touch(s.now())
		return sess, false
	}

	sess := newSession(userID, func() time.Time { return s.now() })
	s.sessions.add(userID, sess)
	s.sessions.trim(userID)
	return sess, true
}

// AppendTurn appends a turn to the user's history, creating the session when needed.
// Content is stored verbatim.
func (s *Service) AppendTurn(ctx context.Context, userID string, role chat.Role, content string) (chat.Turn, error) {
	if !role.Valid() {
		return chat.Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	sess := s.GetOrCreate(ctx, userID)
	return sess.append(role, content, s.now()), nil
}

// HistoryFor returns a snapshot of the user's turns in chronological order.
// Unknown users get an empty history and are not registered.
func (s *Service) HistoryFor(_ context.Context, userID string) []chat.Turn {
	// get refreshes recency, which mutates the index.
	s.mu.Lock()
	sess, ok := s.sessions.get(userID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.Turns()
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions.len()
}

// EvictIdle drops sessions untouched for longer than the configured idle TTL
// and any idle sessions left over capacity. Sessions with an exchange in
// flight are kept. It returns the number removed.
func (s *Service) EvictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sessions.trim("")
	if s.idleTTL <= 0 {
		return removed
	}

	for _, userID := range s.sessions.keys() {
		sess, ok := s.sessions.peek(userID)
		if !ok || sess.busy() {
			continue
		}
		if now.Sub(sess.idleSince()) <= s.idleTTL {
			continue
		}
		s.sessions.remove(userID)
		removed++
		observability.Logger().Info("idle session evicted", "user_id", userID, "idle_since", sess.idleSince())
	}
	return removed
}
