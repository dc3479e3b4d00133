package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

// Session holds one user's ordered conversation history.
type Session struct {
	userID    string
	createdAt time.Time
	clock     func() time.Time

	mu         sync.RWMutex
	turns      []chat.Turn
	lastActive time.Time

	// tail is closed when the most recent gate holder releases.
	gateMu sync.Mutex
	tail   chan struct{}
	held   int
}

func newSession(userID string, clock func() time.Time) *Session {
	now := clock()
	return &Session{
		userID:     userID,
		createdAt:  now,
		clock:      clock,
		lastActive: now,
		turns:      make([]chat.Turn, 0, 16),
	}
}

// UserID returns the identifier the session is keyed on.
func (s *Session) UserID() string {
	return s.userID
}

// Turns returns a copy of the session history in chronological order.
func (s *Session) Turns() []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Info summarizes the session.
func (s *Session) Info() chat.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return chat.SessionInfo{
		UserID:       s.userID,
		Turns:        len(s.turns),
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActive,
	}
}

// Append adds a turn to this session. Content is stored verbatim.
func (s *Session) Append(role chat.Role, content string) (chat.Turn, error) {
	if !role.Valid() {
		return chat.Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.append(role, content, s.clock()), nil
}

func (s *Session) append(role chat.Role, content string, now time.Time) chat.Turn {
	turn := chat.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.lastActive = now
	s.mu.Unlock()

	return turn
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Acquire waits for exclusive use of the session. Callers are admitted in the
// order they called Acquire. The returned release must be called exactly once.
// When ctx ends first the caller's place in line is given up and ctx.Err() is returned.
func (s *Session) Acquire(ctx context.Context) (func(), error) {
	prev, release := s.enqueue()
	return s.wait(ctx, prev, release)
}

// enqueue takes a place in line and marks the session busy.
func (s *Session) enqueue() (<-chan struct{}, func()) {
	done := make(chan struct{})

	s.gateMu.Lock()
	prev := s.tail
	s.tail = done
	s.held++
	s.gateMu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.gateMu.Lock()
			s.held--
			s.gateMu.Unlock()
			close(done)
		})
	}
	return prev, release
}

func (s *Session) wait(ctx context.Context, prev <-chan struct{}, release func()) (func(), error) {
	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// Keep the chain intact for whoever queued behind us.
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// busy reports whether an exchange holds or waits for the gate.
func (s *Session) busy() bool {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	return s.held > 0
}
