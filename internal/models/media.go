package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaFile описывает загруженный файл изображения.
type MediaFile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Path      string    `db:"path" json:"path"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// URL возвращает публичный путь файла относительно /media.
func (m *MediaFile) URL() string {
	return "/media/" + m.Path
}
