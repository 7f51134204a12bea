package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"

	migrations "github.com/bhoomi-id/bhoomi/migrations/postgres"
)

// Migrate aplica las migraciones embebidas en orden lexicográfico, registrando
// cada archivo aplicado en schema_migrations. Re-ejecutar es un no-op.
func (s *Store) Migrate(ctx context.Context) error {
	const bootstrap = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := s.pool.Exec(ctx, bootstrap); err != nil {
		return fmt.Errorf("migrate bootstrap: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, migrations.Dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done bool
		const checkQ = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`
		if err := s.pool.QueryRow(ctx, checkQ, name).Scan(&done); err != nil {
			return err
		}
		if done {
			continue
		}

		sql, err := fs.ReadFile(migrations.FS, path.Join(migrations.Dir, name))
		if err != nil {
			return err
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		const markQ = `INSERT INTO schema_migrations (filename) VALUES ($1)`
		if _, err := tx.Exec(ctx, markQ, name); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
