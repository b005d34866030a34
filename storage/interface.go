package storage

import (
	"context"
	"errors"

	"campusnews/internal/domain"
)

// ErrArchiveDisabled возвращается, когда архив в базе данных выключен в конфигурации.
var ErrArchiveDisabled = errors.New("post archive is disabled")

// Archive определяет общий интерфейс долговременного архива записей.
// Архив пополняется после каждого прогона и не участвует в показе текущего корпуса.
type Archive interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) (int, error)
	GetPosts(ctx context.Context, n int) ([]domain.Post, error)
	Close()
}

// NopArchive используется, когда база данных не настроена.
type NopArchive struct{}

func (NopArchive) SaveSnapshot(context.Context, domain.Snapshot) (int, error) { return 0, nil }

func (NopArchive) GetPosts(context.Context, int) ([]domain.Post, error) {
	return nil, ErrArchiveDisabled
}

func (NopArchive) Close() {}
