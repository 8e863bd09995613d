package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"identityd/internal/model"
	"identityd/internal/store"
)

const userColumns = `id, username, email, password_hash, display_name, role, is_active, preferences, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	prefs, err := marshalPreferences(u.Preferences)
	if err != nil {
		return model.User{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, display_name, role, is_active, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.IsActive, prefs)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique violation on username or email.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, store.ErrConflict
		}
		return model.User{}, err
	}
	return *created, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *Store) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return user, err
}

func (s *Store) SetUserActive(ctx context.Context, userID string) error {
	return s.execOne(ctx, `UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, userID)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, userID)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u           model.User
		displayName sql.NullString
		prefs       []byte
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &displayName, &u.Role, &u.IsActive, &prefs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, err
		}
	}
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return &u, nil
}

func marshalPreferences(prefs map[string]string) ([]byte, error) {
	if prefs == nil {
		prefs = map[string]string{}
	}
	return json.Marshal(prefs)
}
