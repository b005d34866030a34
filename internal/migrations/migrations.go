package migrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	ID    string
	UpSQL string
}

var allMigrations = []Migration{
	{
		ID: "20250301120000_create_posts_table",
		UpSQL: `
		CREATE TABLE posts(
		id serial PRIMARY KEY,
		link TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		pub_date TIMESTAMPTZ NOT NULL,
		outlet TEXT NOT NULL,
		province TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		university TEXT NOT NULL DEFAULT '',
		archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	},
	{
		ID: "20250301120100_create_posts_pub_date_index",
		UpSQL: `CREATE INDEX posts_pub_date_idx ON posts (pub_date DESC);`,
	},
	{
		ID: "20250301120200_create_outlet_outcomes_table",
		UpSQL: `
		CREATE TABLE outlet_outcomes(
		outlet TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		post_count INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		run_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	},
}

// alreadyApplied сообщает, что объект миграции уже существует в базе:
// такое бывает, если схему создали вручную до появления schema_migrations.
func alreadyApplied(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.DuplicateTable, pgerrcode.DuplicateObject:
		return true
	}
	return false
}

// Apply применяет все необходимые миграции к базе данных.
func Apply(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) error {
	log = log.With(slog.String("component", "migrations"))
	log.Info("Starting database migrations check...")
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
	id TEXT PRIMARY KEY
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	rows, err := pool.Query(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	appliedMigrations := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration id: %w", err)
		}
		appliedMigrations[id] = true
	}
	rows.Close()
	pending := Pending(appliedMigrations)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	appliedCount := 0
	for _, m := range pending {
		log.Info("Applying migration", slog.String("id", m.ID))
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to open savepoint for migration %s: %w", m.ID, err)
		}
		if _, err := sp.Exec(ctx, m.UpSQL); err != nil {
			_ = sp.Rollback(ctx)
			if !alreadyApplied(err) {
				return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
			}
			log.Warn("Migration objects already exist, marking as applied", slog.String("id", m.ID))
		} else if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("failed to release savepoint for migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (id) VALUES ($1)", m.ID); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
		appliedCount++
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations transaction: %w", err)
	}
	if appliedCount > 0 {
		log.Info("Database migrations applied successfully", slog.Int("count", appliedCount))
	} else {
		log.Info("Database is up to date, no new migrations found.")
	}
	return nil
}

// Pending возвращает неприменённые миграции в порядке их идентификаторов.
func Pending(applied map[string]bool) []Migration {
	ordered := make([]Migration, len(allMigrations))
	copy(ordered, allMigrations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})
	var pending []Migration
	for _, m := range ordered {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	return pending
}
