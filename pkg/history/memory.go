package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps transcripts in process. Useful for tests and one-shot
// CLI runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn), now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, sessionID, role, text string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], Turn{Role: role, Text: text, Timestamp: s.now().UTC()})
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	limit = normalizeLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]Turn(nil), turns...), nil
}

func (s *MemoryStore) Close() error { return nil }
