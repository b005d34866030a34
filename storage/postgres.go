package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"campusnews/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultArchiveLimit = 50

type PostgresArchive struct {
	pool         *pgxpool.Pool
	log          *slog.Logger
	defaultLimit int
}

func NewPostgresArchive(pool *pgxpool.Pool, defaultLimit int, log *slog.Logger) *PostgresArchive {
	log.Info("Initializing Postgres post archive")
	if defaultLimit <= 0 {
		defaultLimit = defaultArchiveLimit
	}
	return &PostgresArchive{
		pool:         pool,
		log:          log,
		defaultLimit: defaultLimit,
	}
}

func (db *PostgresArchive) Close() {
	db.log.Info("Closing database connection pool")
	db.pool.Close()
}

const upsertPostQuery = `
	INSERT INTO posts (link, title, excerpt, image, pub_date, outlet, province, city, university)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (link) DO UPDATE SET
		title = EXCLUDED.title,
		excerpt = EXCLUDED.excerpt,
		image = EXCLUDED.image,
		pub_date = EXCLUDED.pub_date,
		archived_at = now();
	`

const upsertOutcomeQuery = `
	INSERT INTO outlet_outcomes (outlet, platform, status, post_count, skipped, error)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (outlet) DO UPDATE SET
		platform = EXCLUDED.platform,
		status = EXCLUDED.status,
		post_count = EXCLUDED.post_count,
		skipped = EXCLUDED.skipped,
		error = EXCLUDED.error,
		run_at = now();
	`

// Возвращает число отправленных записей; записи без ссылки не архивируются.
// Возвращает число отправленных записей.
func (db *PostgresArchive) SaveSnapshot(ctx context.Context, snap domain.Snapshot) (count int, err error) {
	if len(snap.Posts) == 0 && len(snap.Outcomes) == 0 {
		return 0, nil
	}
	const op = "storage.postgres.SaveSnapshot"
	log := db.log.With(slog.String("op", op))
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	posts, skipped := archivablePosts(snap.Posts)
	if skipped > 0 {
		log.Warn("Posts without link are not archived", slog.Int("skipped", skipped))
	}
	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(upsertPostQuery,
			p.Link,
			p.Title,
			p.Excerpt,
			p.Image,
			p.Date,
			p.Outlet,
			p.Province,
			p.City,
			p.University,
		)
	}
	for name, oc := range snap.Outcomes {
		batch.Queue(upsertOutcomeQuery,
			name,
			string(oc.Outlet.Platform),
			string(oc.Status),
			oc.Count,
			oc.Skipped,
			oc.Error,
		)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Error("Failed to execute batch", slog.Any("error", err))
		return 0, fmt.Errorf("failed to execute batch: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Info("Snapshot archived",
		slog.Int("count", len(posts)),
		slog.Int("outlets", len(snap.Outcomes)),
	)
	return len(posts), nil
}

// archivablePosts отбрасывает записи без ссылки: ссылка служит ключом архива.
func archivablePosts(posts []domain.Post) ([]domain.Post, int) {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if strings.TrimSpace(p.Link) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, len(posts) - len(out)
}

// GetPosts возвращает n самых свежих записей архива.
func (db *PostgresArchive) GetPosts(ctx context.Context, n int) ([]domain.Post, error) {
	limit := n
	if limit <= 0 {
		limit = db.defaultLimit
	}
	const op = "storage.postgres.GetPosts"
	log := db.log.With(slog.String("op", op), slog.Int("limit", limit))
	query := `
	SELECT title, link, pub_date, image, excerpt, outlet, province, city, university
	FROM posts
	ORDER BY pub_date DESC, link
	LIMIT $1;
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Post, error) {
		var p domain.Post
		err := row.Scan(
			&p.Title,
			&p.Link,
			&p.Date,
			&p.Image,
			&p.Excerpt,
			&p.Outlet,
			&p.Province,
			&p.City,
			&p.University,
		)
		return p, err
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Debug("Archived posts retrieved", slog.Int("count", len(posts)))
	return posts, nil
}
