// Package repository holds the in-memory embedding store and attendance ledger.
package repository

import (
	"sync"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/metrics"
)

type entry struct {
	user      model.User
	embedding model.Embedding
}

// EmbeddingStore maps user IDs to exactly one reference embedding and keeps
// enrollment order. Embeddings are cloned on the way in and out.
type EmbeddingStore struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int // user id -> position in entries
}

// NewEmbeddingStore creates an empty store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{index: make(map[string]int)}
}

// Put stores emb for user. Re-enrolling an existing ID overwrites it in place
// and keeps its original position. Returns true if an entry was replaced.
func (s *EmbeddingStore) Put(user model.User, emb model.Embedding) (bool, error) {
	if user.ID == "" {
		return false, ErrEmptyUserID
	}
	if len(emb) == 0 {
		return false, ErrEmptyEmbedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{user: user, embedding: emb.Clone()}
	if i, ok := s.index[user.ID]; ok {
		s.entries[i] = e
		return true, nil
	}
	s.index[user.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	metrics.UpdateEnrolledUsers(len(s.entries))
	return false, nil
}

// Get returns the user and a copy of their embedding.
func (s *EmbeddingStore) Get(userID string) (model.User, model.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[userID]
	if !ok {
		return model.User{}, nil, ErrNotFound
	}
	e := s.entries[i]
	return e.user, e.embedding.Clone(), nil
}

// References returns a snapshot of all embeddings in enrollment order.
func (s *EmbeddingStore) References() []model.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Reference, len(s.entries))
	for i, e := range s.entries {
		out[i] = model.Reference{UserID: e.user.ID, Embedding: e.embedding.Clone()}
	}
	return out
}

// Users returns all enrolled users in enrollment order.
func (s *EmbeddingStore) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.user
	}
	return out
}

// Len returns the number of enrolled users.
func (s *EmbeddingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
