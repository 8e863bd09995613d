package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Bearer    string    `json:"-"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore keeps server-side session records in Redis: one hash
// per session plus a per-user index set, so invalidating every session
// of a user is a handful of deletes rather than a keyspace scan.
type SessionStore struct {
	Redis *redis.Client
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }

func NewSessionID() string {
	return uuid.NewString()
}

func (s *SessionStore) Create(ctx context.Context, sess Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}

	data := map[string]interface{}{
		"userId":    sess.UserID,
		"role":      sess.Role,
		"bearer":    sess.Bearer,
		"ip":        sess.IP,
		"userAgent": sess.UserAgent,
		"loginTime": sess.LoginTime.Unix(),
		"expires":   sess.ExpiresAt.Unix(),
	}

	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, sessionKey(sess.ID), data)
	pipe.Expire(ctx, sessionKey(sess.ID), ttl)
	pipe.SAdd(ctx, userSessionsKey(sess.UserID), sess.ID)
	pipe.Expire(ctx, userSessionsKey(sess.UserID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := s.Redis.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	expUnix, _ := strconv.ParseInt(vals["expires"], 10, 64)
	loginUnix, _ := strconv.ParseInt(vals["loginTime"], 10, 64)

	sess := &Session{
		ID:        id,
		UserID:    vals["userId"],
		Role:      vals["role"],
		Bearer:    vals["bearer"],
		IP:        vals["ip"],
		UserAgent: vals["userAgent"],
		LoginTime: time.Unix(loginUnix, 0),
		ExpiresAt: time.Unix(expUnix, 0),
	}

	if sess.ExpiresAt.Before(time.Now()) {
		_ = s.Delete(ctx, sess.UserID, id)
		return nil, nil
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, userID, id string) error {
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	if userID != "" {
		pipe.SRem(ctx, userSessionsKey(userID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteByUser invalidates every session for the user. Called after a
// password reset so the new password orphans all bearers.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := s.Redis.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}

	pipe := s.Redis.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) ListForUser(ctx context.Context, userID string) ([]Session, error) {
	ids, err := s.Redis.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var sessions []Session
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			sessions = append(sessions, *sess)
		}
	}
	return sessions, nil
}
