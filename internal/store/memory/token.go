package memory

import (
	"context"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

func (s *Store) CreateAuthToken(_ context.Context, t model.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	s.tokens[t.TokenHash] = t
	return nil
}

func (s *Store) GetAuthToken(_ context.Context, tokenHash string, kind model.TokenKind) (*model.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenHash]
	if !ok || t.Kind != kind {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ConsumeAuthToken(_ context.Context, tokenHash string, kind model.TokenKind, now time.Time) (*model.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenHash]
	if !ok || t.Kind != kind || t.IsUsed || !now.Before(t.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	t.IsUsed = true
	s.tokens[tokenHash] = t
	return &t, nil
}

func (s *Store) DeleteStaleTokens(_ context.Context, expiredBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for hash, t := range s.tokens {
		if t.IsUsed || t.ExpiresAt.Before(expiredBefore) {
			delete(s.tokens, hash)
			removed++
		}
	}
	return removed, nil
}
