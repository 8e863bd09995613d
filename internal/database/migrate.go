package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisory lock key shared by every process that runs migrations
// against the same database.
const migrationLockID int64 = 4417203

// ApplyMigrations runs every pending *.up.sql file from the directory
// in lexical order. Each file is applied in its own transaction and
// recorded with a checksum; a file that changed after being applied
// aborts the run. An advisory lock serializes concurrent runners.
func ApplyMigrations(ctx context.Context, db *pgxpool.Pool, migrationsDir string) error {
	if migrationsDir == "" {
		return errors.New("migrations directory is required")
	}

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	if _, err := db.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = db.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	versions, err := listMigrations(migrationsDir)
	if err != nil {
		return err
	}

	for _, version := range versions {
		if err := applyOne(ctx, db, migrationsDir, version); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *pgxpool.Pool, dir, version string) error {
	raw, err := os.ReadFile(filepath.Join(dir, version+".up.sql"))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	sum := sha256.Sum256(raw)
	checksum := hex.EncodeToString(sum[:])

	var applied string
	err = db.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version=$1`, version).Scan(&applied)
	switch {
	case err == nil:
		if applied != checksum {
			return fmt.Errorf("migration %s was changed after being applied", version)
		}
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("read migration state %s: %w", version, err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, string(raw)); err != nil {
		return fmt.Errorf("apply migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`,
		version, checksum,
	); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}

func listMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(entry.Name(), ".up.sql"))
	}
	sort.Strings(versions)
	return versions, nil
}
