package chat

import (
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// index stores sessions by user id. Implementations are not safe for
// concurrent use; Service.mu guards them.
type index interface {
	get(userID string) (*Session, bool)
	peek(userID string) (*Session, bool)
	add(userID string, s *Session)
	remove(userID string)
	keys() []string
	len() int
	// trim enforces the capacity bound, never dropping keep. It returns the
	// number of sessions dropped.
	trim(keep string) int
}

type mapIndex map[string]*Session

func (m mapIndex) get(userID string) (*Session, bool) {
	s, ok := m[userID]
	return s, ok
}

func (m mapIndex) peek(userID string) (*Session, bool) {
	return m.get(userID)
}

func (m mapIndex) add(userID string, s *Session) {
	m[userID] = s
}

func (m mapIndex) remove(userID string) {
	delete(m, userID)
}

func (m mapIndex) keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (m mapIndex) len() int {
	return len(m)
}

func (m mapIndex) trim(string) int {
	return 0
}

// lruIndex bounds the number of sessions, dropping the least recently used
// idle one. Sessions holding or awaiting their gate are never dropped, so the
// index may exceed its capacity until one of them is released.
type lruIndex struct {
	capacity int
	cache    *simplelru.LRU[string, *Session]
}

func newLRUIndex(capacity int, onEvict func(userID string, s *Session)) (*lruIndex, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid session capacity %d", capacity)
	}
	// Capacity is enforced by trim; the cache itself is left unbounded.
	cache, err := simplelru.NewLRU[string, *Session](math.MaxInt32, onEvict)
	if err != nil {
		return nil, err
	}
	return &lruIndex{capacity: capacity, cache: cache}, nil
}

func (l *lruIndex) get(userID string) (*Session, bool) {
	return l.cache.Get(userID)
}

func (l *lruIndex) peek(userID string) (*Session, bool) {
	return l.cache.Peek(userID)
}

func (l *lruIndex) add(userID string, s *Session) {
	l.cache.Add(userID, s)
}

func (l *lruIndex) remove(userID string) {
	l.cache.Remove(userID)
}

func (l *lruIndex) keys() []string {
	return l.cache.Keys()
}

func (l *lruIndex) len() int {
	return l.cache.Len()
}

// trim drops idle sessions, oldest first, until the index fits its capacity.
// keep is never dropped.
func (l *lruIndex) trim(keep string) int {
	removed := 0
	for l.cache.Len() > l.capacity {
		victim, ok := l.oldestIdle(keep)
		if !ok {
			break
		}
		l.cache.Remove(victim)
		removed++
	}
	return removed
}

func (l *lruIndex) oldestIdle(keep string) (string, bool) {
	for _, userID := range l.cache.Keys() {
		if userID == keep {
			continue
		}
		if s, ok := l.cache.Peek(userID); ok && !s.busy() {
			return userID, true
		}
	}
	return "", false
}
