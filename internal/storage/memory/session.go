package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/0x5457/pagesearch/internal/storage"
)

type SessionStore struct {
	mu   sync.RWMutex
	data map[string]storage.Session
	now  func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string]storage.Session), now: time.Now}
}

func (s *SessionStore) LoadSession(ctx context.Context, id string) (*storage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	out := clone(sess)
	return &out, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, sess storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess = clone(sess)
	sess.UpdatedAt = s.now()
	s.data[sess.ID] = sess
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *SessionStore) Close() error {
	return nil
}

func clone(sess storage.Session) storage.Session {
	sess.Filters = sess.Filters.Clone()
	sess.OpenGroups = slices.Clone(sess.OpenGroups)
	return sess
}
