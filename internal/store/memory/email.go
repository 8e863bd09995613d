package memory

import (
	"context"
	"sort"
	"time"

	"identityd/internal/model"
	"identityd/internal/store"
)

func (s *Store) EnqueueEmail(_ context.Context, e model.QueuedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = newID()
	}
	if e.Status == "" {
		e.Status = model.EmailStatusPending
	}
	if e.ScheduledAt.IsZero() {
		e.ScheduledAt = time.Now().UTC()
	}
	s.emails[e.ID] = e
	return nil
}

func (s *Store) GetQueuedEmail(_ context.Context, id string) (*model.QueuedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ClaimDueEmails(_ context.Context, limit int, now time.Time, maxAttempts int, retryDelay time.Duration) ([]model.QueuedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.QueuedEmail
	for _, e := range s.emails {
		switch e.Status {
		case model.EmailStatusPending:
			if !e.ScheduledAt.After(now) {
				due = append(due, e)
			}
		case model.EmailStatusFailed:
			if e.Attempts < maxAttempts && e.LastAttemptAt != nil && !e.LastAttemptAt.After(now.Add(-retryDelay)) {
				due = append(due, e)
			}
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for i, e := range due {
		e.Status = model.EmailStatusSending
		s.emails[e.ID] = e
		due[i] = e
	}
	return due, nil
}

func (s *Store) MarkEmailSent(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = model.EmailStatusSent
	e.SentAt = &at
	s.emails[id] = e
	return nil
}

func (s *Store) MarkEmailFailed(_ context.Context, id string, at time.Time, sendErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = model.EmailStatusFailed
	e.Attempts++
	e.LastAttemptAt = &at
	e.Error = &sendErr
	s.emails[id] = e
	return nil
}
