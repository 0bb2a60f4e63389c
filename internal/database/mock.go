package database

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store for tests. AppendErrs lets tests inject a
// fixed number of leading failures to exercise commit retries.
type MockStore struct {
	mu        sync.Mutex
	messages  []Message
	sessions  map[string]uint64
	appendErr error
	failLeft  int
}

func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]uint64)}
}

func (s *MockStore) FailAppends(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLeft = n
	s.appendErr = err
}

func (s *MockStore) AppendMessage(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLeft > 0 {
		s.failLeft--
		return s.appendErr
	}
	// Idempotent on (RequestID, Role), matching the real unique key.
	for i, existing := range s.messages {
		if existing.RequestID == msg.RequestID && existing.Role == msg.Role {
			s.messages[i] = msg
			return nil
		}
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MockStore) VerifyOwnership(_ context.Context, sessionID string, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.sessions[sessionID]
	return ok && owner == userID, nil
}

func (s *MockStore) CreateSession(_ context.Context, sessionID string, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = userID
	return nil
}

func (s *MockStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
