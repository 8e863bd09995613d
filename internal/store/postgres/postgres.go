// Package postgres implements store.Store on pgx. All conditional
// mutations are single statements so they stay atomic without explicit
// transactions.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}
