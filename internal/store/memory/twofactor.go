package memory

import (
	"context"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

func (s *Store) CreateTwoFactorCredential(_ context.Context, c model.TwoFactorCredential, codes []model.BackupCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A restarted setup replaces the pending credential; an enabled one
	// must be explicitly disabled first.
	for id, existing := range s.credentials {
		if existing.UserID != c.UserID {
			continue
		}
		if existing.IsEnabled {
			return store.ErrConflict
		}
		delete(s.credentials, id)
		delete(s.backupCodes, id)
	}

	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = time.Now().UTC()
	s.credentials[c.ID] = c
	s.backupCodes[c.ID] = append([]model.BackupCode(nil), codes...)
	return nil
}

func (s *Store) GetTwoFactorCredential(_ context.Context, userID string) (*model.TwoFactorCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.credentials {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) EnableTwoFactorCredential(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return store.ErrNotFound
	}
	c.IsEnabled = true
	s.credentials[id] = c
	return nil
}

func (s *Store) DeleteTwoFactorCredential(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.credentials {
		if c.UserID == userID {
			delete(s.credentials, id)
			delete(s.backupCodes, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) TouchTwoFactorCredential(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return store.ErrNotFound
	}
	c.LastUsedAt = &usedAt
	s.credentials[id] = c
	return nil
}

func (s *Store) ReplaceBackupCodes(_ context.Context, credentialID string, codes []model.BackupCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[credentialID]; !ok {
		return store.ErrNotFound
	}
	s.backupCodes[credentialID] = append([]model.BackupCode(nil), codes...)
	return nil
}

func (s *Store) ConsumeBackupCode(_ context.Context, credentialID, codeHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := s.backupCodes[credentialID]
	for i, code := range codes {
		if code.CodeHash == codeHash && code.UsedAt == nil {
			used := now
			codes[i].UsedAt = &used
			return nil
		}
	}
	return store.ErrNotFound
}
