// Package memory implements store.Store with mutex-guarded maps. It
// backs tests and single-process development setups; production runs
// the postgres implementation.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"identityd/internal/model"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]model.User
	tokens      map[string]model.AuthToken // keyed by token hash
	credentials map[string]model.TwoFactorCredential
	backupCodes map[string][]model.BackupCode // keyed by credential ID
	emails      map[string]model.QueuedEmail
}

func New() *Store {
	return &Store{
		users:       make(map[string]model.User),
		tokens:      make(map[string]model.AuthToken),
		credentials: make(map[string]model.TwoFactorCredential),
		backupCodes: make(map[string][]model.BackupCode),
		emails:      make(map[string]model.QueuedEmail),
	}
}

func newID() string {
	return uuid.NewString()
}
