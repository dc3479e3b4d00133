package persona

import (
	"fmt"
	"os"
	"strings"
)

// Store exposes persona retrieval.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the predefined persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Resolve picks the persona to serve. A non-empty promptPath replaces the
// persona's system prompt with the file contents.
func Resolve(store Store, id, promptPath string) (Persona, error) {
	if id == "" {
		id = DefaultID
	}

	p, ok := store.FindByID(id)
	if !ok {
		var known []string
		for _, item := range store.List() {
			known = append(known, item.ID)
		}
		return Persona{}, fmt.Errorf("persona %q not found (available: %s)", id, strings.Join(known, ", "))
	}

	if promptPath == "" {
		return p, nil
	}

	data, err := os.ReadFile(promptPath)
	if err != nil {
		return Persona{}, fmt.Errorf("read system prompt %s: %w", promptPath, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return Persona{}, fmt.Errorf("system prompt file %s is empty", promptPath)
	}
	p.SystemPrompt = prompt
	return p, nil
}
