package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ecosketch/ecosketch/pkg/models"
)

// MemoryStore is the default in-memory session store. Instances are
// independent; tests construct one per case instead of sharing a singleton.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*models.Session
	nextID   int64
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*models.Session),
		nextID:   1,
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, in NewSession) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := in.Status
	if status == "" {
		status = models.StatusPrompt
	}

	sess := &models.Session{
		ID:         m.nextID,
		UserPrompt: in.UserPrompt,
		Status:     status,
		CreatedAt:  m.now(),
	}
	m.nextID++
	m.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id int64, upd SessionUpdate) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	upd.apply(sess)
	return sess.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
