package usecase

import (
	"context"
	"errors"

	"campusnews/internal/domain"
	"campusnews/storage"
)

// ArchiveGetterUseCase отдает записи из долговременного архива для API.
type ArchiveGetterUseCase struct {
	storage ArchiveStorage
}

// NewArchiveGetterUseCase создает новый экземпляр UseCase для чтения архива.
func NewArchiveGetterUseCase(s ArchiveStorage) *ArchiveGetterUseCase {
	return &ArchiveGetterUseCase{storage: s}
}

// GetPosts возвращает не более limit последних записей архива.
// Выключенный архив дает пустой список и storage.ErrArchiveDisabled.
func (us *ArchiveGetterUseCase) GetPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	posts, err := us.storage.GetPosts(ctx, limit)
	if errors.Is(err, storage.ErrArchiveDisabled) {
		return []domain.Post{}, err
	}
	return posts, err
}
