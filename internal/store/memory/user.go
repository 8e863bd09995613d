package memory

import (
	"context"
	"strings"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return model.User{}, store.ErrConflict
		}
	}

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetUserActive(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = true
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}
