package app

import (
	"context"
	"fmt"
	"log/slog"

	"campusnews/internal/adapter/fetcher"
	"campusnews/internal/adapter/parser"
	"campusnews/internal/aggregator"
	"campusnews/internal/cache"
	"campusnews/internal/config"
	"campusnews/internal/migrations"
	"campusnews/internal/registry"
	"campusnews/internal/source"
	"campusnews/internal/usecase"
	"campusnews/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Core объединяет компоненты агрегации, общие для сервера и команд CLI.
type Core struct {
	Registry    *registry.Loader
	Coordinator *aggregator.Coordinator
	Cache       *cache.FileCache
	Archive     storage.Archive
	Feed        *usecase.NewsFeedUseCase
	Archived    *usecase.ArchiveGetterUseCase
}

// NewCore собирает зависимости по конфигурации. При включенной базе данных
// подключается к PostgreSQL и применяет миграции.
func NewCore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Core, error) {
	httpFetcher := fetcher.NewHTTPFetcher(log, cfg.App.UserAgent)
	jsonp := fetcher.NewJSONPLoader(httpFetcher, cfg.App.JSONPTimeoutDuration(), log)
	postParser := parser.NewPostParser(log)

	src := source.NewFetcher(httpFetcher, jsonp, postParser, source.Options{
		Timeout:        cfg.App.FetchTimeoutDuration(),
		LookbackMonths: cfg.App.LookbackMonths,
		MaxResults:     cfg.App.MaxResults,
	}, log)

	coordinator := aggregator.NewCoordinator(src, aggregator.Options{
		Highlights:     cfg.App.Highlights,
		Threshold:      cfg.App.RevealThreshold,
		MaxConcurrency: cfg.App.MaxConcurrency,
	}, log)

	fileCache, err := cache.NewFileCache(cfg.Cache.Path, cfg.Cache.TTLDuration(), cfg.Cache.MaxBytes, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}

	archive, err := openArchive(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	registryLoader := registry.NewLoader(cfg.App.RegistryPath, httpFetcher, log)
	feed := usecase.NewNewsFeedUseCase(registryLoader, coordinator, fileCache, archive, usecase.NewsFeedOptions{
		Highlights: cfg.App.Highlights,
		PageSize:   cfg.App.PageSize,
	}, log)

	return &Core{
		Registry:    registryLoader,
		Coordinator: coordinator,
		Cache:       fileCache,
		Archive:     archive,
		Feed:        feed,
		Archived:    usecase.NewArchiveGetterUseCase(archive),
	}, nil
}

func openArchive(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Archive, error) {
	if !cfg.Database.Enabled {
		log.Info("Post archive disabled", slog.String("component", "database"))
		return storage.NopArchive{}, nil
	}
	dbPool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrations.Apply(ctx, log, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	log.Info("Database connection established", slog.String("component", "database"))
	return storage.NewPostgresArchive(dbPool, cfg.App.PageSize*4, log), nil
}

// Close освобождает соединение с базой данных.
func (c *Core) Close() {
	if c.Archive != nil {
		c.Archive.Close()
	}
}
