package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/storage"
)

// Достаточно для определения типа по магическим байтам.
const sniffLen = 262

// Разрешённые MIME-типы изображений.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// MediaStore описывает хранилище метаданных файлов.
type MediaStore interface {
	Create(ctx context.Context, media *models.MediaFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error)
	Delete(ctx context.Context, mediaID uuid.UUID) error
}

// MediaService загружает изображения: тип определяется по содержимому,
// а не по расширению имени файла.
type MediaService struct {
	store   MediaStore
	storage *storage.PhotoStorage
}

// NewMediaService создаёт сервис медиафайлов.
func NewMediaService(store MediaStore, photoStorage *storage.PhotoStorage) *MediaService {
	return &MediaService{store: store, storage: photoStorage}
}

// Upload сохраняет изображение и регистрирует его в БД.
func (s *MediaService) Upload(ctx context.Context, ownerID uuid.UUID, originalName string, r io.Reader) (*models.MediaFile, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось прочитать файл")
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return nil, apperror.New(apperror.ErrCodeValidation, "не удалось определить тип файла")
	}
	if _, ok := allowedImageTypes[kind.MIME.Value]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "допускаются только изображения jpeg, png, gif или webp")
	}

	full := io.MultiReader(bytes.NewReader(head), r)
	path, size, err := s.storage.Save(ctx, ownerID, originalName, full)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	media := &models.MediaFile{
		OwnerID:   ownerID,
		Path:      path,
		MimeType:  kind.MIME.Value,
		SizeBytes: size,
	}
	if err := s.store.Create(ctx, media); err != nil {
		_ = s.storage.Delete(ctx, path)
		return nil, err
	}
	return media, nil
}

// Get возвращает метаданные файла.
func (s *MediaService) Get(ctx context.Context, mediaID uuid.UUID) (*models.MediaFile, error) {
	media, err := s.store.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "файл не найден")
		}
		return nil, err
	}
	return media, nil
}

// Delete удаляет файл владельца: сначала метаданные, затем содержимое.
func (s *MediaService) Delete(ctx context.Context, actorID, mediaID uuid.UUID) error {
	media, err := s.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	if media.OwnerID != actorID {
		return apperror.ErrForbidden
	}

	if err := s.store.Delete(ctx, mediaID); err != nil {
		return err
	}
	return s.storage.Delete(ctx, media.Path)
}
