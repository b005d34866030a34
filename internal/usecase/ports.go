package usecase

import (
	"context"

	"campusnews/internal/aggregator"
	"campusnews/internal/cache"
	"campusnews/internal/domain"
)

// OutletRegistry определяет интерфейс загрузки списка изданий.
type OutletRegistry interface {
	Load(ctx context.Context) ([]domain.Outlet, error)
}

// Aggregator запускает один прогон загрузки всех изданий.
type Aggregator interface {
	Run(ctx context.Context, outlets []domain.Outlet, obs aggregator.Observer) (domain.Snapshot, error)
}

// SnapshotCache определяет интерфейс слота кэша с TTL.
type SnapshotCache interface {
	Save(snap domain.Snapshot) error
	Load() (*cache.Entry, bool)
	Clear()
}

// ArchiveStorage определяет интерфейс долговременного архива записей.
type ArchiveStorage interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) (int, error)
	GetPosts(ctx context.Context, n int) ([]domain.Post, error)
}
